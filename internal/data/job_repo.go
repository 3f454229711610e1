package data

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	"github.com/target/inboxjobs/internal/domain/tabular"
)

var (
	// ErrJobNotFound is returned when no Jobs row carries the requested ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobIDRequired is returned when a lookup is attempted without an ID.
	ErrJobIDRequired = errors.New("job_id is required")
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger *slog.Logger
}

// JobRepo maps Jobs, Results and Aggregated rows onto typed records.
type JobRepo struct {
	store  core.TableStore
	logger *slog.Logger
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates a JobRepo over the given table store.
func NewJobRepo(store core.TableStore, cfg RepoConfig) *JobRepo {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRepo{store: store, logger: logger.With("component", "job_repo")}
}

// List returns every job in insertion order. Rows that cannot be decoded are logged and skipped.
func (r *JobRepo) List(ctx context.Context) ([]*model.Job, error) {
	rows, err := r.store.ListAll(ctx, tabular.Jobs)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]*model.Job, 0, len(rows))
	for _, row := range rows {
		job, decodeErr := JobFromRow(row)
		if decodeErr != nil {
			r.logger.WarnContext(ctx, "skipping malformed job row", "error", decodeErr)
			continue
		}
		if job.ID == "" {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// GetByID returns the job with id or ErrJobNotFound.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	if id == "" {
		return nil, ErrJobIDRequired
	}
	jobs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// Create appends a new job row.
func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	return r.CreateMany(ctx, []*model.Job{job})
}

// CreateMany appends job rows in one write.
func (r *JobRepo) CreateMany(ctx context.Context, jobs []*model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	rows := make([]tabular.Row, len(jobs))
	for i, job := range jobs {
		rows[i] = JobToRow(job)
	}
	if err := r.store.AppendRows(ctx, tabular.Jobs, rows); err != nil {
		return fmt.Errorf("create jobs: %w", err)
	}
	return nil
}

// Update rewrites the job's row in place.
func (r *JobRepo) Update(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		return ErrJobIDRequired
	}
	key := tabular.Row{tabular.ColJobID: job.ID}
	if err := r.store.UpsertRow(ctx, tabular.Jobs, key, JobToRow(job)); err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	return nil
}

// TransitionStatus writes the job's Status, Error, UpdatedAt and FinishedAt cells only when
// the stored row is still in status from. It reports whether the row was changed; progress
// cells are never touched.
func (r *JobRepo) TransitionStatus(ctx context.Context, job *model.Job, from model.JobStatus) (bool, error) {
	if job.ID == "" {
		return false, ErrJobIDRequired
	}
	raw, err := r.rawStatus(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if model.JobStatus(strings.ToLower(strings.TrimSpace(raw))) != from {
		return false, nil
	}
	full := JobToRow(job)
	// Match the stored spelling so hand-edited cells such as "Running" still compare.
	key := tabular.Row{tabular.ColJobID: job.ID, tabular.ColStatus: raw}
	row := tabular.Row{
		tabular.ColStatus:     full[tabular.ColStatus],
		tabular.ColError:      full[tabular.ColError],
		tabular.ColUpdatedAt:  full[tabular.ColUpdatedAt],
		tabular.ColFinishedAt: full[tabular.ColFinishedAt],
	}
	n, err := r.store.UpdateRows(ctx, tabular.Jobs, key, row)
	if err != nil {
		return false, fmt.Errorf("transition job %s: %w", job.ID, err)
	}
	return n > 0, nil
}

func (r *JobRepo) rawStatus(ctx context.Context, id string) (string, error) {
	rows, err := r.store.ListAll(ctx, tabular.Jobs)
	if err != nil {
		return "", fmt.Errorf("list jobs: %w", err)
	}
	for _, row := range rows {
		if row[tabular.ColJobID] == id {
			return row[tabular.ColStatus], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// FailMalformed moves every queued or running row that cannot be decoded to error, so a
// row the scheduler cannot see never stays live beside the one it advances. It returns the
// IDs of the rows it failed.
func (r *JobRepo) FailMalformed(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.store.ListAll(ctx, tabular.Jobs)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var failed []string
	for _, row := range rows {
		_, decodeErr := JobFromRow(row)
		if decodeErr == nil {
			continue
		}
		status := model.JobStatus(strings.ToLower(strings.TrimSpace(row[tabular.ColStatus])))
		if status != model.JobStatusQueued && status != model.JobStatusRunning {
			continue
		}
		if strings.TrimSpace(row[tabular.ColJobID]) == "" {
			r.logger.WarnContext(ctx, "malformed live job row has no ID", "error", decodeErr)
			continue
		}
		key := tabular.Row{tabular.ColJobID: row[tabular.ColJobID], tabular.ColStatus: row[tabular.ColStatus]}
		update := tabular.Row{
			tabular.ColStatus:     string(model.JobStatusError),
			tabular.ColError:      "malformed row: " + decodeErr.Error(),
			tabular.ColUpdatedAt:  formatTime(&now),
			tabular.ColFinishedAt: formatTime(&now),
		}
		n, updErr := r.store.UpdateRows(ctx, tabular.Jobs, key, update)
		if updErr != nil {
			return failed, fmt.Errorf("fail malformed job %s: %w", row[tabular.ColJobID], updErr)
		}
		if n > 0 {
			r.logger.WarnContext(ctx, "failed malformed job row",
				"job_id", row[tabular.ColJobID], "status", status, "error", decodeErr)
			failed = append(failed, strings.TrimSpace(row[tabular.ColJobID]))
		}
	}
	return failed, nil
}

// WriteJobResults appends job's outcome rows. Every Results column must be present in the
// header before anything is written.
func (r *JobRepo) WriteJobResults(ctx context.Context, job *model.Job, rows []model.ResultRow) (int, error) {
	header, err := r.store.Header(ctx, tabular.Results)
	if err != nil {
		return 0, fmt.Errorf("read results header: %w", err)
	}
	if err = tabular.RequireColumns(tabular.Results, header, tabular.ResultsSchema.Columns); err != nil {
		return 0, err
	}
	n, err := r.AppendResults(ctx, rows)
	if err != nil {
		return 0, err
	}
	r.logger.InfoContext(ctx, "wrote job results", "job_id", job.ID, "rows", n)
	return n, nil
}

// AppendResults appends result rows in one write.
func (r *JobRepo) AppendResults(ctx context.Context, rows []model.ResultRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	out := make([]tabular.Row, len(rows))
	for i, row := range rows {
		out[i] = ResultToRow(row)
	}
	if err := r.store.AppendRows(ctx, tabular.Results, out); err != nil {
		return 0, fmt.Errorf("append results: %w", err)
	}
	return len(out), nil
}

// ListResults returns the Results rows flushed for jobID.
func (r *JobRepo) ListResults(ctx context.Context, jobID string) ([]model.ResultRow, error) {
	if jobID == "" {
		return nil, ErrJobIDRequired
	}
	rows, err := r.store.ListAll(ctx, tabular.Results)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	var out []model.ResultRow
	for _, row := range rows {
		if row[tabular.ColJobID] != jobID {
			continue
		}
		res, decodeErr := ResultFromRow(row)
		if decodeErr != nil {
			r.logger.WarnContext(ctx, "skipping malformed result row", "job_id", jobID, "error", decodeErr)
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// UpsertAggregated replaces the rollup row of each address with the given counters.
func (r *JobRepo) UpsertAggregated(ctx context.Context, rows []model.AggregatedRow) error {
	if len(rows) == 0 {
		return nil
	}
	header, err := r.store.Header(ctx, tabular.Aggregated)
	if err != nil {
		return fmt.Errorf("read aggregated header: %w", err)
	}
	if err = tabular.RequireColumns(tabular.Aggregated, header, tabular.AggregatedSchema.Columns); err != nil {
		return err
	}
	for _, row := range rows {
		key := tabular.Row{tabular.ColAddress: row.Address}
		if err = r.store.UpsertRow(ctx, tabular.Aggregated, key, AggregatedToRow(row)); err != nil {
			return fmt.Errorf("upsert aggregated %s: %w", row.Address, err)
		}
	}
	return nil
}

// CheckSchema verifies that all three tables carry their required columns.
func (r *JobRepo) CheckSchema(ctx context.Context) error {
	var errs []error
	for _, schema := range tabular.Schemas() {
		header, err := r.store.Header(ctx, schema.Table)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s header: %w", schema.Table, err))
			continue
		}
		if err = tabular.RequireColumns(schema.Table, header, schema.Columns); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
