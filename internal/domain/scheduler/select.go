// Package scheduler holds the single-flight selection and transition rules the scheduler
// service applies on every invocation. It performs no I/O.
package scheduler

import (
	"time"

	"github.com/target/inboxjobs/internal/domain/model"
)

// Selection is the job an invocation should advance.
type Selection struct {
	// Job is nil when nothing is running or queued.
	Job *model.Job
	// Promote is set when Job is queued and must be moved to running first.
	Promote bool
	// Surplus lists running rows beyond the first. They are put back in the queue so that
	// at most one row stays running.
	Surplus []*model.Job
}

// Idle reports whether there is nothing to advance.
func (s Selection) Idle() bool {
	return s.Job == nil
}

// Select picks the job to advance from rows in insertion order: the first running row,
// otherwise the first queued row. Rows in any other status are never selected.
func Select(jobs []*model.Job) Selection {
	var sel Selection
	var firstQueued *model.Job
	for _, job := range jobs {
		switch job.Status {
		case model.JobStatusRunning:
			if sel.Job == nil {
				sel.Job = job
			} else {
				sel.Surplus = append(sel.Surplus, job)
			}
		case model.JobStatusQueued:
			if firstQueued == nil {
				firstQueued = job
			}
		case model.JobStatusDone, model.JobStatusError, model.JobStatusCancelled:
		}
	}
	if sel.Job == nil && firstQueued != nil {
		sel.Job = firstQueued
		sel.Promote = true
	}
	return sel
}

// Requeue puts a surplus running row back in the queue, keeping its cursor so it resumes
// where it stopped.
func Requeue(job *model.Job, now time.Time) {
	job.Status = model.JobStatusQueued
	job.Touch(now)
}

// ApplyOutcome records a processor's progress and completes the job when it is done.
// Processed never decreases.
func ApplyOutcome(job *model.Job, out model.Outcome, now time.Time) {
	progress := out.Progress
	if progress.Processed < job.Processed {
		progress.Processed = job.Processed
	}
	if out.Done {
		progress.Cursor = ""
		if progress.Total < progress.Processed {
			progress.Total = progress.Processed
		}
	}
	job.ApplyProgress(progress)
	if out.Done {
		job.Finish(model.JobStatusDone, now)
		return
	}
	job.Touch(now)
}

// ApplyFailure moves the job to error with err's message.
func ApplyFailure(job *model.Job, err error, now time.Time) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	job.Fail(msg, now)
}

// Reconcile merges an advanced copy of a job with the row as it is stored now.
// A stored cancellation always wins: only the processor-owned progress is carried over and
// the row stays cancelled.
func Reconcile(stored, advanced *model.Job, now time.Time) (*model.Job, bool) {
	if stored == nil || stored.Status != model.JobStatusCancelled {
		return advanced, false
	}
	merged := *stored
	progress := advanced.Progress()
	if progress.Processed < merged.Processed {
		progress.Processed = merged.Processed
	}
	merged.ApplyProgress(progress)
	merged.Touch(now)
	return &merged, true
}
