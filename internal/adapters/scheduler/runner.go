// Package scheduler provides adapters for running the job scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/observability/metrics"
	"github.com/target/inboxjobs/internal/observability/statsd"
)

const (
	// DefaultPollInterval is how often the runner checks whether a wake-up is due.
	DefaultPollInterval = 5 * time.Second
	// DefaultHandler is the trigger handler the runner answers to.
	DefaultHandler = "scheduler.tick"
	// leaseGrace is added to the invocation budget so the lease outlives the final write.
	leaseGrace = 30 * time.Second
	// releaseTimeout bounds the lease release after the invocation context is gone.
	releaseTimeout = 5 * time.Second
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Scheduler core.JobScheduler // Required
	// Triggers gates invocations: the runner only ticks while Handler is registered.
	// When nil every poll is a wake-up.
	Triggers core.TriggerRegistry
	// Lease guards against overlapping invocations across processes. Optional.
	Lease   core.Lease
	Handler string
	// PollInterval is how often the registration is checked.
	PollInterval time.Duration
	// Config supplies the invocation budget.
	Config core.SchedulerConfig
	// Metrics receives one count and timing per invocation. Optional.
	Metrics statsd.Sink
	Now     func() time.Time
	Logger  *slog.Logger
}

// Runner wakes the scheduler on the registered interval. Each wake-up is one bounded
// invocation that advances at most one job by one page.
type Runner struct {
	scheduler    core.JobScheduler
	triggers     core.TriggerRegistry
	lease        core.Lease
	handler      string
	pollInterval time.Duration
	budget       time.Duration
	metrics      statsd.Sink
	now          func() time.Time
	logger       *slog.Logger

	lastRun time.Time
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}
	return &Runner{
		scheduler:    opts.Scheduler,
		triggers:     opts.Triggers,
		lease:        opts.Lease,
		handler:      opts.Handler,
		pollInterval: opts.PollInterval,
		budget:       opts.Config.InvocationBudget,
		metrics:      opts.Metrics,
		now:          opts.Now,
		logger:       opts.Logger.With("component", "scheduler_runner"),
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.Scheduler == nil {
		return errors.New("scheduler is required")
	}
	if opts.Handler == "" {
		opts.Handler = DefaultHandler
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Config.InvocationBudget <= 0 {
		opts.Config.InvocationBudget = core.DefaultSchedulerConfig().InvocationBudget
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// Run polls until the context is cancelled and invokes the scheduler whenever the
// registered interval has elapsed since the previous invocation.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner",
		"handler", r.handler, "poll_interval", r.pollInterval, "budget", r.budget)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "scheduler runner stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := r.Poll(ctx); err != nil {
				// Continue running despite errors
				r.logger.ErrorContext(ctx, "scheduler invocation failed", "error", err)
			}
		}
	}
}

// Poll runs one invocation when a wake-up is due. It returns nil, nil when none is.
func (r *Runner) Poll(ctx context.Context) (*core.TickResult, error) {
	interval, registered, err := r.registration(ctx)
	if err != nil {
		return nil, err
	}
	if !registered {
		return nil, nil //nolint:nilnil // no registration means nothing to run
	}
	now := r.now()
	if !r.lastRun.IsZero() && now.Sub(r.lastRun) < interval {
		return nil, nil //nolint:nilnil // not due yet
	}
	r.lastRun = now
	return r.Invoke(ctx, now)
}

func (r *Runner) registration(ctx context.Context) (time.Duration, bool, error) {
	if r.triggers == nil {
		return 0, true, nil
	}
	reg, err := r.triggers.Get(ctx, r.handler)
	if err != nil {
		return 0, false, fmt.Errorf("read trigger registration: %w", err)
	}
	if reg == nil {
		return 0, false, nil
	}
	return reg.Interval, true, nil
}

// Invoke runs one scheduler invocation under the lease and the invocation budget.
func (r *Runner) Invoke(ctx context.Context, now time.Time) (*core.TickResult, error) {
	if r.lease != nil {
		release, ok, err := r.lease.Acquire(ctx, r.handler, r.budget+leaseGrace)
		if err != nil {
			return nil, fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			r.logger.InfoContext(ctx, "another invocation holds the lease")
			metrics.EmitInvocation(r.metrics, metrics.Invocation{Outcome: string(core.TickSkipped)})
			return &core.TickResult{Outcome: core.TickSkipped}, nil
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			if relErr := release(rctx); relErr != nil {
				r.logger.WarnContext(ctx, "release lease failed", "error", relErr)
			}
		}()
	}

	bctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	start := time.Now()
	res, err := r.scheduler.Tick(bctx, now)
	elapsed := time.Since(start)
	if err != nil {
		metrics.EmitInvocation(r.metrics, metrics.Invocation{Duration: elapsed, Err: err})
		return nil, fmt.Errorf("scheduler tick: %w", err)
	}
	metrics.EmitInvocation(r.metrics, metrics.Invocation{
		Outcome:  string(res.Outcome),
		JobType:  res.JobType,
		Duration: elapsed,
	})
	if res.Outcome != core.TickIdle {
		r.logger.InfoContext(ctx, "scheduler invocation",
			"job_id", res.JobID,
			"outcome", res.Outcome,
			"processed", res.Processed,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return res, nil
}
