package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/domain/model"
	apperrors "github.com/target/inboxjobs/internal/errors"
	"github.com/target/inboxjobs/internal/observability/metrics"
	"github.com/target/inboxjobs/internal/observability/statsd"
)

const (
	// DefaultTriggerHandler is the handler name the scheduler's wake-up is registered under.
	DefaultTriggerHandler = "scheduler.tick"
	// DefaultTriggerInterval is the wake-up interval registered on job creation.
	DefaultTriggerInterval = time.Minute
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository   // Required: job repository
	Mailbox         core.Mailbox         // Optional: needed by ExactCount, Estimate and CheckEnvironment
	Triggers        core.TriggerRegistry // Optional: periodic wake-up registry ensured on job creation
	TriggerHandler  string               // Optional: defaults to DefaultTriggerHandler
	TriggerInterval time.Duration        // Optional: defaults to DefaultTriggerInterval
	Metrics         statsd.Sink          // Optional: counts admitted jobs
	Now             func() time.Time     // Optional: clock override for tests
	Logger          *slog.Logger         // Optional: structured logger
}

// JobService is the job control API: it admits, cancels and reports on jobs.
// It never advances a job; that is the scheduler's job.
type JobService struct {
	repo            core.JobRepository
	mailbox         core.Mailbox
	triggers        core.TriggerRegistry
	triggerHandler  string
	triggerInterval time.Duration
	metrics         statsd.Sink
	now             func() time.Time
	logger          *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.TriggerHandler == "" {
		opts.TriggerHandler = DefaultTriggerHandler
	}
	if opts.TriggerInterval <= 0 {
		opts.TriggerInterval = DefaultTriggerInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &JobService{
		repo:            opts.Repo,
		mailbox:         opts.Mailbox,
		triggers:        opts.Triggers,
		triggerHandler:  opts.TriggerHandler,
		triggerInterval: opts.TriggerInterval,
		metrics:         opts.Metrics,
		now:             opts.Now,
		logger:          logger.With("component", "job_service"),
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// CreateJob validates req, makes sure the periodic wake-up exists and appends a queued job.
func (s *JobService) CreateJob(ctx context.Context, req model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err)
	}
	if err := s.ensureTrigger(ctx); err != nil {
		return nil, err
	}

	job, err := model.NewJob(req, s.now())
	if err != nil {
		return nil, apperrors.Validation(err)
	}
	if err = s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	metrics.EmitJobCreated(s.metrics, string(job.Type))
	s.logger.InfoContext(ctx, "job queued",
		"job_id", job.ID, "type", job.Type, "query", job.Query)
	return job, nil
}

// StartMarkReadAndArchive queues a markReadAndArchive job over targets, narrowed by search.
func (s *JobService) StartMarkReadAndArchive(ctx context.Context, search string, targets []string) (*model.Job, error) {
	return s.CreateJob(ctx, model.CreateJobRequest{
		Type:    model.JobTypeMarkReadAndArchive,
		Search:  search,
		Targets: targets,
	})
}

// StartFetchSenders queues a fetchSenders job for search.
func (s *JobService) StartFetchSenders(ctx context.Context, search string) (*model.Job, error) {
	return s.CreateJob(ctx, model.CreateJobRequest{Type: model.JobTypeFetchSenders, Search: search})
}

func (s *JobService) ensureTrigger(ctx context.Context) error {
	if s.triggers == nil {
		return nil
	}
	created, err := s.triggers.Ensure(ctx, core.TriggerRegistration{
		Handler:      s.triggerHandler,
		Interval:     s.triggerInterval,
		RegisteredAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("ensure trigger: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "registered scheduler trigger",
			"handler", s.triggerHandler, "interval", s.triggerInterval)
	}
	return nil
}

// ResumeTrigger registers the periodic wake-up when any job is still queued or running.
// It reports whether such a job exists. A restarted process calls it so unfinished jobs
// advance without waiting for a new job to be created.
func (s *JobService) ResumeTrigger(ctx context.Context) (bool, error) {
	jobs, err := s.ListAll(ctx)
	if err != nil {
		return false, err
	}
	pending := 0
	for _, job := range jobs {
		if job.Status == model.JobStatusQueued || job.Status == model.JobStatusRunning {
			pending++
		}
	}
	if pending == 0 {
		return false, nil
	}
	if err = s.ensureTrigger(ctx); err != nil {
		return true, err
	}
	s.logger.InfoContext(ctx, "resuming unfinished jobs", "pending", pending)
	return true, nil
}

// cancelAttempts bounds how often Cancel re-reads a row that an invocation moved meanwhile.
const cancelAttempts = 3

// Cancel moves a queued or running job to cancelled. Terminal jobs cannot be cancelled.
// The write only lands while the row is still in the status Cancel read, so a job an
// invocation finished in the meantime stays finished. Progress cells are never rewritten.
func (s *JobService) Cancel(ctx context.Context, id string) (*model.Job, error) {
	for range cancelAttempts {
		job, err := s.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return nil, apperrors.Conflictf("job %s is already %s", id, job.Status)
		}

		from := job.Status
		job.Finish(model.JobStatusCancelled, s.now())
		changed, err := s.repo.TransitionStatus(ctx, job, from)
		if err != nil {
			return nil, fmt.Errorf("cancel job: %w", err)
		}
		if changed {
			s.logger.InfoContext(ctx, "job cancelled", "job_id", id, "processed", job.Processed)
			return job, nil
		}
		s.logger.DebugContext(ctx, "job changed while cancelling", "job_id", id, "from", from)
	}
	return nil, apperrors.Conflictf("job %s kept changing; retry the cancel", id)
}

// GetStatus reports a job's row. Unknown IDs yield Known=false with status "unknown"
// rather than an error.
func (s *JobService) GetStatus(ctx context.Context, id string) (*model.JobStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, data.ErrJobNotFound), errors.Is(err, data.ErrJobIDRequired):
		return &model.JobStatusResponse{ID: id, Status: model.JobStatusUnknown}, nil
	case err != nil:
		return nil, fmt.Errorf("get job status: %w", err)
	}
	return &model.JobStatusResponse{ID: id, Known: true, Status: job.Status, Job: job}, nil
}

// ListAll returns every job in insertion order.
func (s *JobService) ListAll(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ListRunning returns the jobs currently in running status.
func (s *JobService) ListRunning(ctx context.Context) ([]*model.Job, error) {
	jobs, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	running := make([]*model.Job, 0, 1)
	for _, job := range jobs {
		if job.Status == model.JobStatusRunning {
			running = append(running, job)
		}
	}
	return running, nil
}

// Stats counts jobs per status.
func (s *JobService) Stats(ctx context.Context) (*model.JobStats, error) {
	jobs, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &model.JobStats{}
	for _, job := range jobs {
		stats.Count(job.Status)
	}
	return stats, nil
}

// Results returns the Results rows flushed for a job.
func (s *JobService) Results(ctx context.Context, id string) ([]model.ResultRow, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return rows, nil
}

// ExactCount pages through every thread matching the job's search expression.
func (s *JobService) ExactCount(ctx context.Context, id string) (int, error) {
	job, err := s.get(ctx, id)
	if err != nil {
		return 0, err
	}
	mailbox, err := s.requireMailbox()
	if err != nil {
		return 0, err
	}
	n, err := mailbox.ExactCount(ctx, job.SearchExpression())
	if err != nil {
		return 0, apperrors.Provider("exact count", err)
	}
	return n, nil
}

// Estimate returns the provider's cheap estimate of threads matching query.
func (s *JobService) Estimate(ctx context.Context, query string) (int, error) {
	mailbox, err := s.requireMailbox()
	if err != nil {
		return 0, err
	}
	n, err := mailbox.EstimateCount(ctx, query)
	if err != nil {
		return 0, apperrors.Provider("estimate count", err)
	}
	return n, nil
}

// CheckSchema verifies the three tables' headers.
func (s *JobService) CheckSchema(ctx context.Context) error {
	return s.repo.CheckSchema(ctx)
}

// EnvironmentReport summarizes CheckEnvironment.
type EnvironmentReport struct {
	SchemaOK   bool   `json:"schema_ok"`
	SchemaErr  string `json:"schema_error,omitempty"`
	MailboxOK  bool   `json:"mailbox_ok"`
	MailboxErr string `json:"mailbox_error,omitempty"`
	InboxCount int    `json:"inbox_estimate"`
}

// CheckEnvironment verifies the three tables' headers and, when a mailbox is configured,
// that the provider answers an estimate for the inbox. The error joins every failed check.
func (s *JobService) CheckEnvironment(ctx context.Context) (*EnvironmentReport, error) {
	report := &EnvironmentReport{}
	var errs []error

	if err := s.repo.CheckSchema(ctx); err != nil {
		report.SchemaErr = err.Error()
		errs = append(errs, err)
	} else {
		report.SchemaOK = true
	}

	if s.mailbox != nil {
		n, err := s.mailbox.EstimateCount(ctx, "in:inbox")
		if err != nil {
			perr := apperrors.Provider("estimate inbox", err)
			report.MailboxErr = perr.Error()
			errs = append(errs, perr)
		} else {
			report.MailboxOK = true
			report.InboxCount = n
		}
	}
	return report, errors.Join(errs...)
}

func (s *JobService) get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, data.ErrJobNotFound), errors.Is(err, data.ErrJobIDRequired):
		return nil, apperrors.NotFoundf("job %q not found", id)
	case err != nil:
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *JobService) requireMailbox() (core.Mailbox, error) {
	if s.mailbox == nil {
		return nil, apperrors.Wrap(errors.New("mailbox provider not configured"), apperrors.ErrCodeInternal, "mailbox unavailable")
	}
	return s.mailbox, nil
}
