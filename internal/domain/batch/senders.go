package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

// SendersProcessorOptions configures SendersProcessor.
type SendersProcessorOptions struct {
	Mailbox      core.Mailbox
	Accumulators core.AccumulatorStore
	Jobs         core.JobRepository
	PageSize     int
	Logger       *slog.Logger
}

// SendersProcessor collects per-sender counters for a fetchSenders job. Counters live in
// an accumulator between pages and are flushed to Results and Aggregated once the listing
// is exhausted.
type SendersProcessor struct {
	mailbox  core.Mailbox
	accs     core.AccumulatorStore
	jobs     core.JobRepository
	pageSize int
	logger   *slog.Logger
}

var _ core.BatchProcessor = (*SendersProcessor)(nil)

// NewSendersProcessor creates a SendersProcessor.
func NewSendersProcessor(opts SendersProcessorOptions) *SendersProcessor {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SendersProcessor{
		mailbox:  opts.Mailbox,
		accs:     opts.Accumulators,
		jobs:     opts.Jobs,
		pageSize: opts.PageSize,
		logger:   opts.Logger.With("component", "senders_processor"),
	}
}

// Advance merges one page of thread metadata into the job's accumulator.
// A page whose input cursor the accumulator already merged is not listed again.
func (p *SendersProcessor) Advance(ctx context.Context, job *model.Job, now time.Time) (model.Outcome, error) {
	acc, err := p.accs.Load(ctx, job.ID)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("load accumulator: %w", err)
	}
	if acc == nil {
		acc = &model.SenderAccumulator{Senders: model.SenderSet{}}
	}

	if acc.HasMerged(job.PageToken) {
		processed := max(job.Processed, acc.Threads)
		p.logger.InfoContext(ctx, "page already merged, resuming",
			"job_id", job.ID, "next_cursor_set", acc.NextCursor != "")
		if acc.NextCursor == "" {
			return p.flush(ctx, job, acc, flushParams{processed: processed, now: now})
		}
		return model.Outcome{
			Progress: model.Progress{Processed: processed, Total: job.Total, Cursor: acc.NextCursor},
		}, nil
	}

	page, err := p.mailbox.ListPage(ctx, core.ListPageParams{
		Query:  job.SearchExpression(),
		Cursor: job.PageToken,
		Size:   p.pageSize,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.Outcome{}, ctxErr
		}
		return model.Outcome{}, apperrors.Provider("list threads", err)
	}
	if page == nil {
		page = &model.Page{}
	}

	pageSenders, err := p.collect(ctx, job, page.Items)
	if err != nil {
		return model.Outcome{}, err
	}

	acc.Senders.Merge(pageSenders)
	acc.Pages++
	acc.MergedCursor = job.PageToken
	acc.NextCursor = page.Next
	acc.Threads += len(page.Items)
	if err = p.accs.Save(ctx, job.ID, acc); err != nil {
		return model.Outcome{}, fmt.Errorf("save accumulator: %w", err)
	}

	processed := job.Processed + len(page.Items)
	if page.Done() {
		return p.flush(ctx, job, acc, flushParams{processed: processed, now: now})
	}
	return model.Outcome{
		Progress: model.Progress{Processed: processed, Total: job.Total, Cursor: page.Next},
	}, nil
}

func (p *SendersProcessor) collect(ctx context.Context, job *model.Job, threadIDs []string) (model.SenderSet, error) {
	senders := model.SenderSet{}
	for _, threadID := range threadIDs {
		meta, err := p.mailbox.ThreadMetadata(ctx, threadID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.logger.WarnContext(ctx, "thread metadata failed",
				"job_id", job.ID, "thread_id", threadID, "error", err)
			continue
		}
		if meta != nil {
			senders.Add(*meta)
		}
	}
	return senders, nil
}

type flushParams struct {
	processed int
	now       time.Time
}

// flush writes one Results row per sender in a single append, refreshes the Aggregated
// rollup and clears the accumulator. Results already written for the job are reused
// instead of appended twice.
func (p *SendersProcessor) flush(
	ctx context.Context,
	job *model.Job,
	acc *model.SenderAccumulator,
	params flushParams,
) (model.Outcome, error) {
	finished := *job
	finished.Finish(model.JobStatusDone, params.now)

	rows, err := p.jobs.ListResults(ctx, job.ID)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("list existing results: %w", err)
	}
	if len(rows) == 0 {
		rows = model.ResultRowsFromSenders(&finished, acc.Senders)
		if _, err = p.jobs.WriteJobResults(ctx, &finished, rows); err != nil {
			return model.Outcome{}, err
		}
	} else {
		p.logger.InfoContext(ctx, "results already flushed", "job_id", job.ID, "rows", len(rows))
	}

	if err = p.jobs.UpsertAggregated(ctx, aggregatedRows(rows, params.now)); err != nil {
		return model.Outcome{}, err
	}
	if err = p.accs.Delete(ctx, job.ID); err != nil {
		return model.Outcome{}, fmt.Errorf("delete accumulator: %w", err)
	}

	p.logger.InfoContext(ctx, "senders job flushed",
		"job_id", job.ID, "senders", len(rows), "pages", acc.Pages, "processed", params.processed)
	return model.Outcome{
		Progress: model.Progress{Processed: params.processed, Total: params.processed},
		Done:     true,
	}, nil
}

func aggregatedRows(rows []model.ResultRow, now time.Time) []model.AggregatedRow {
	out := make([]model.AggregatedRow, 0, len(rows))
	for _, r := range rows {
		if r.Address == "" {
			continue
		}
		out = append(out, model.AggregatedRow{
			JobID:     r.JobID,
			Address:   r.Address,
			Total:     r.Total,
			Unread:    r.Unread,
			Threads:   r.Threads,
			LastDate:  r.LastDate,
			UpdatedAt: now.UTC(),
		})
	}
	return out
}
