// Package batch implements the per-type processors that advance a job by one page of
// mailbox work per scheduler invocation.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/domain/model"
	apperrors "github.com/target/inboxjobs/internal/errors"
)

// DefaultPageSize bounds the threads one invocation touches when no size is configured.
const DefaultPageSize = 100

// ArchiveProcessorOptions configures ArchiveProcessor.
type ArchiveProcessorOptions struct {
	Mailbox  core.Mailbox
	PageSize int
	Logger   *slog.Logger
}

// ArchiveProcessor marks every thread matching a markReadAndArchive job as read and
// removes it from the inbox, one page per call.
type ArchiveProcessor struct {
	mailbox  core.Mailbox
	pageSize int
	logger   *slog.Logger
}

var _ core.BatchProcessor = (*ArchiveProcessor)(nil)

// NewArchiveProcessor creates an ArchiveProcessor.
func NewArchiveProcessor(opts ArchiveProcessorOptions) *ArchiveProcessor {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ArchiveProcessor{
		mailbox:  opts.Mailbox,
		pageSize: opts.PageSize,
		logger:   opts.Logger.With("component", "archive_processor"),
	}
}

// Advance archives one page of matches. Threads that fail are logged and skipped;
// the page still counts towards Processed.
func (p *ArchiveProcessor) Advance(ctx context.Context, job *model.Job, _ time.Time) (model.Outcome, error) {
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

	failed := 0
	for _, threadID := range page.Items {
		if archiveErr := p.mailbox.MarkReadAndArchive(ctx, threadID); archiveErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Outcome{}, ctxErr
			}
			failed++
			p.logger.WarnContext(ctx, "archive thread failed",
				"job_id", job.ID, "thread_id", threadID, "error", archiveErr)
		}
	}

	processed := job.Processed + len(page.Items)
	out := model.Outcome{
		Progress: model.Progress{Processed: processed, Total: job.Total, Cursor: page.Next},
		Done:     page.Done(),
	}
	if out.Done {
		out.Progress.Total = processed
	}

	p.logger.InfoContext(ctx, "archived page",
		"job_id", job.ID, "threads", len(page.Items), "failed", failed, "processed", processed, "done", out.Done)
	return out, nil
}
