// Package service provides the scheduler, job control and legacy import services of inboxjobs.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	domainscheduler "github.com/target/inboxjobs/internal/domain/scheduler"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

// persistTimeout bounds the final row write, which runs even after the invocation budget expired.
const persistTimeout = 15 * time.Second

// SchedulerServiceOptions holds the dependencies for creating a SchedulerService.
type SchedulerServiceOptions struct {
	Jobs    core.JobRepository  // Required
	Archive core.BatchProcessor // Processor for markReadAndArchive jobs
	Senders core.BatchProcessor // Processor for fetchSenders jobs
	Logger  *slog.Logger
}

// SchedulerService implements core.JobScheduler. Every Tick advances at most one job by
// one page and leaves at most one job running.
type SchedulerService struct {
	jobs    core.JobRepository
	archive core.BatchProcessor
	senders core.BatchProcessor
	logger  *slog.Logger
}

var _ core.JobScheduler = (*SchedulerService)(nil)

// NewSchedulerService creates a SchedulerService.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SchedulerService{
		jobs:    opts.Jobs,
		archive: opts.Archive,
		senders: opts.Senders,
		logger:  opts.Logger.With("component", "scheduler"),
	}, nil
}

// Tick runs one scheduler invocation.
//
// Algorithm:
// 1. Fail live rows that cannot be decoded, then load every job row; surplus running rows
//    are put back in the queue
// 2. Advance the running row, or promote and persist the oldest queued row
// 3. Dispatch to the processor for the job type
// 4. Re-read the row and persist progress without overwriting a cancellation
//
// Processor failures move the job to error and do not fail the invocation.
// Store failures, including schema errors, fail the invocation before any job advances.
func (s *SchedulerService) Tick(ctx context.Context, now time.Time) (*core.TickResult, error) {
	if _, err := s.jobs.FailMalformed(ctx, now); err != nil {
		return nil, fmt.Errorf("fail malformed jobs: %w", err)
	}
	jobs, err := s.jobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	sel := domainscheduler.Select(jobs)
	for _, extra := range sel.Surplus {
		domainscheduler.Requeue(extra, now)
		if err = s.jobs.Update(ctx, extra); err != nil {
			return nil, fmt.Errorf("requeue job %s: %w", extra.ID, err)
		}
		s.logger.WarnContext(ctx, "requeued surplus running job", "job_id", extra.ID)
	}
	if sel.Idle() {
		s.logger.DebugContext(ctx, "no queued or running jobs")
		return &core.TickResult{Outcome: core.TickIdle}, nil
	}

	job := sel.Job
	res := &core.TickResult{JobID: job.ID, JobType: string(job.Type), Promoted: sel.Promote}
	if sel.Promote {
		job.Start(now)
		if err = s.jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("promote job %s: %w", job.ID, err)
		}
		s.logger.InfoContext(ctx, "started queued job", "job_id", job.ID, "type", job.Type)
	}

	proc, err := s.processorFor(job.Type)
	if err == nil {
		var out model.Outcome
		out, err = proc.Advance(ctx, job, now)
		if err == nil {
			domainscheduler.ApplyOutcome(job, out, now)
			res.Outcome = core.TickAdvanced
			if out.Done {
				res.Outcome = core.TickCompleted
			}
		}
	}
	if err != nil {
		if ctx.Err() != nil && isContextErr(err) {
			s.logger.WarnContext(ctx, "invocation budget exhausted mid-page", "job_id", job.ID, "error", err)
			res.Outcome = core.TickInterrupted
			res.Processed = job.Processed
			return res, nil
		}
		domainscheduler.ApplyFailure(job, err, now)
		res.Outcome = core.TickFailed
		res.Error = job.Error
		s.logger.ErrorContext(ctx, "job failed", "job_id", job.ID, "type", job.Type, "error", err)
	}

	final, err := s.persist(ctx, job, now)
	if err != nil {
		return nil, err
	}
	if final.Status == model.JobStatusCancelled {
		res.Outcome = core.TickCancelled
	}
	res.Processed = final.Processed
	s.logger.InfoContext(ctx, "tick finished",
		"job_id", final.ID, "outcome", res.Outcome, "status", final.Status, "processed", final.Processed)
	return res, nil
}

// processorFor dispatches on the job type. Types outside the closed set fail the job.
func (s *SchedulerService) processorFor(t model.JobType) (core.BatchProcessor, error) {
	var proc core.BatchProcessor
	switch t {
	case model.JobTypeMarkReadAndArchive:
		proc = s.archive
	case model.JobTypeFetchSenders:
		proc = s.senders
	default:
		return nil, apperrors.UnknownType(string(t))
	}
	if proc == nil {
		return nil, fmt.Errorf("no processor configured for %s jobs", t)
	}
	return proc, nil
}

// persist re-reads the row and writes the advanced job unless it was cancelled meanwhile.
func (s *SchedulerService) persist(ctx context.Context, job *model.Job, now time.Time) (*model.Job, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	stored, err := s.jobs.GetByID(pctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("reload job %s: %w", job.ID, err)
	}
	final, cancelled := domainscheduler.Reconcile(stored, job, now)
	if cancelled {
		s.logger.InfoContext(ctx, "job cancelled while its page was in flight", "job_id", job.ID)
	}
	if err = s.jobs.Update(pctx, final); err != nil {
		return nil, fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return final, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
