// Package testutil provides testing utilities and helpers for the inboxjobs scheduler.
package testutil

import (
	"time"

	"github.com/target/inboxjobs/internal/domain/model"
)

// JobBuilder provides a fluent interface for building Job records for testing.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a JobBuilder with a queued fetchSenders job.
func NewJob(id string) *JobBuilder {
	now := TestTime()
	return &JobBuilder{
		job: &model.Job{
			ID:        id,
			Type:      model.JobTypeFetchSenders,
			Search:    "label:newsletters",
			Targets:   []string{"label:newsletters"},
			Query:     "label:newsletters",
			Status:    model.JobStatusQueued,
			UpdatedAt: &now,
		},
	}
}

// Archive switches the job to markReadAndArchive over targets.
func (b *JobBuilder) Archive(targets ...string) *JobBuilder {
	b.job.Type = model.JobTypeMarkReadAndArchive
	b.job.Search = ""
	b.job.Targets = targets
	b.job.Query = model.BuildArchiveQuery(targets)
	return b
}

// WithType sets the job type, including values no processor handles.
func (b *JobBuilder) WithType(t model.JobType) *JobBuilder {
	b.job.Type = t
	return b
}

// WithStatus sets the job status.
func (b *JobBuilder) WithStatus(s model.JobStatus) *JobBuilder {
	b.job.Status = s
	if s != model.JobStatusQueued && b.job.StartedAt == nil {
		started := TestTime()
		b.job.StartedAt = &started
	}
	return b
}

// WithProgress sets the counters and cursor.
func (b *JobBuilder) WithProgress(processed, total int, cursor string) *JobBuilder {
	b.job.ApplyProgress(model.Progress{Processed: processed, Total: total, Cursor: cursor})
	return b
}

// UpdatedAt sets UpdatedAt.
func (b *JobBuilder) UpdatedAt(t time.Time) *JobBuilder {
	b.job.UpdatedAt = &t
	return b
}

// Build returns the constructed job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}
