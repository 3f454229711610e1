package core

import (
	"context"
	"time"

	"github.com/target/inboxjobs/internal/domain/model"
)

// TickOutcome summarizes what one scheduler invocation did.
type TickOutcome string

const (
	// TickIdle means no running or queued job existed.
	TickIdle TickOutcome = "idle"
	// TickAdvanced means the running job completed a page and more remain.
	TickAdvanced TickOutcome = "advanced"
	// TickCompleted means the running job finished.
	TickCompleted TickOutcome = "completed"
	// TickFailed means the running job was moved to error.
	TickFailed TickOutcome = "failed"
	// TickCancelled means the job was cancelled while its page was in flight.
	TickCancelled TickOutcome = "cancelled"
	// TickInterrupted means the invocation budget ran out mid-page; nothing was persisted
	// and the page is replayed by the next invocation.
	TickInterrupted TickOutcome = "interrupted"
	// TickSkipped means another invocation held the lease.
	TickSkipped TickOutcome = "skipped"
)

// TickResult reports the job an invocation touched, if any.
type TickResult struct {
	JobID     string      `json:"job_id,omitempty"`
	JobType   string      `json:"job_type,omitempty"`
	Promoted  bool        `json:"promoted"`
	Outcome   TickOutcome `json:"outcome"`
	Processed int         `json:"processed"`
	Error     string      `json:"error,omitempty"`
}

// JobScheduler is the trigger-driven entry point.
type JobScheduler interface {
	// Tick advances at most one job by one page.
	Tick(ctx context.Context, now time.Time) (*TickResult, error)
}

// BatchProcessor performs one bounded page of work for a job of its type.
// It owns Processed, Total and the cursor; the scheduler owns status transitions.
type BatchProcessor interface {
	Advance(ctx context.Context, job *model.Job, now time.Time) (model.Outcome, error)
}

// SchedulerConfig holds configuration for the job scheduler.
type SchedulerConfig struct {
	// PageSize bounds the threads one invocation touches.
	PageSize int `json:"page_size"`
	// InvocationBudget bounds one invocation's wall-clock time.
	InvocationBudget time.Duration `json:"invocation_budget"`
}

// DefaultSchedulerConfig returns a SchedulerConfig with sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PageSize:         100,
		InvocationBudget: 5 * time.Minute,
	}
}
