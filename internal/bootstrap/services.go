package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/inboxjobs/config"
	"github.com/target/inboxjobs/internal/adapters/gmail"
	redisadapter "github.com/target/inboxjobs/internal/adapters/redis"
	schedrunner "github.com/target/inboxjobs/internal/adapters/scheduler"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/domain/batch"
	"github.com/target/inboxjobs/internal/service"
)

// ServiceContainer holds all application services.
// Scheduler and Runner are nil without a mailbox; Importer is nil without Redis.
type ServiceContainer struct {
	Repo      *data.JobRepo
	Jobs      *service.JobService
	Scheduler *service.SchedulerService
	Runner    *schedrunner.Runner
	Importer  *service.LegacyImporter
	Triggers  core.TriggerRegistry
	Mailbox   core.Mailbox
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Infra  *Infrastructure
	// Mailbox overrides the Gmail provider built from Config.Gmail.
	Mailbox core.Mailbox
	// WithoutMailbox skips the provider entirely; the scheduler is not built.
	WithoutMailbox bool
	Now            func() time.Time
	Logger         *slog.Logger
}

// NewMailbox builds the Gmail provider from the OAuth2 files named in cfg.
//
//nolint:ireturn // callers depend on the port, not the Gmail adapter.
func NewMailbox(ctx context.Context, cfg config.GmailConfig, logger *slog.Logger) (core.Mailbox, error) {
	client, err := gmail.NewHTTPClient(ctx, gmail.AuthOptions{
		CredentialsFile: cfg.CredentialsFile,
		TokenFile:       cfg.TokenFile,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("gmail auth: %w", err)
	}
	provider, err := gmail.NewProvider(ctx, gmail.ProviderOptions{
		HTTPClient: client,
		RateLimit:  cfg.RateLimit,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// NewServices wires repositories, processors and services onto the opened infrastructure.
// Without Redis the trigger registry is in-process, there is no lease, and sender tallies
// live in the table store.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.Infra == nil || deps.Infra.Store == nil {
		return ServiceContainer{}, errors.New("config and infrastructure are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := ServiceContainer{
		Repo:     data.NewJobRepo(deps.Infra.Store, data.RepoConfig{Logger: logger}),
		Triggers: newTriggerRegistry(deps.Infra, cfg.Redis),
		Mailbox:  deps.Mailbox,
	}

	if c.Mailbox == nil && !deps.WithoutMailbox {
		mailbox, err := NewMailbox(ctx, cfg.Gmail, logger)
		if err != nil {
			return ServiceContainer{}, err
		}
		c.Mailbox = mailbox
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:            c.Repo,
		Mailbox:         c.Mailbox,
		Triggers:        c.Triggers,
		TriggerHandler:  service.DefaultTriggerHandler,
		TriggerInterval: cfg.Scheduler.TriggerInterval,
		Metrics:         deps.Infra.Metrics,
		Now:             deps.Now,
		Logger:          logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}
	c.Jobs = jobs

	if c.Mailbox != nil {
		if err = wireScheduler(&c, deps, logger); err != nil {
			return ServiceContainer{}, err
		}
	}

	if deps.Infra.Redis != nil {
		imp, impErr := service.NewLegacyImporter(service.LegacyImporterOptions{
			Source: data.NewRedisLegacyKV(deps.Infra.Redis, cfg.Legacy.HashKey),
			Jobs:   c.Repo,
			Now:    deps.Now,
			Logger: logger,
		})
		if impErr != nil {
			return ServiceContainer{}, fmt.Errorf("create legacy importer: %w", impErr)
		}
		c.Importer = imp
	}

	return c, nil
}

func wireScheduler(c *ServiceContainer, deps *ServiceDeps, logger *slog.Logger) error {
	cfg := deps.Config
	archive := batch.NewArchiveProcessor(batch.ArchiveProcessorOptions{
		Mailbox:  c.Mailbox,
		PageSize: cfg.Scheduler.PageSize,
		Logger:   logger,
	})
	senders := batch.NewSendersProcessor(batch.SendersProcessorOptions{
		Mailbox:      c.Mailbox,
		Accumulators: newAccumulatorStore(deps.Infra, cfg.Redis, deps.Now),
		Jobs:         c.Repo,
		PageSize:     cfg.Scheduler.PageSize,
		Logger:       logger,
	})

	sched, err := service.NewSchedulerService(service.SchedulerServiceOptions{
		Jobs:    c.Repo,
		Archive: archive,
		Senders: senders,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create scheduler service: %w", err)
	}
	c.Scheduler = sched

	runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
		Scheduler:    sched,
		Triggers:     c.Triggers,
		Lease:        newLease(deps.Infra, cfg),
		Handler:      service.DefaultTriggerHandler,
		PollInterval: cfg.Scheduler.PollInterval,
		Config: core.SchedulerConfig{
			PageSize:         cfg.Scheduler.PageSize,
			InvocationBudget: cfg.Scheduler.InvocationBudget,
		},
		Metrics: deps.Infra.Metrics,
		Now:     deps.Now,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}
	c.Runner = runner
	return nil
}

//nolint:ireturn // the Redis and memory registries share the port.
func newTriggerRegistry(infra *Infrastructure, cfg config.RedisConfig) core.TriggerRegistry {
	if infra.Redis == nil {
		return redisadapter.NewMemoryTriggerRegistry()
	}
	return redisadapter.NewTriggerRegistryWithPrefix(infra.Redis, cfg.KeyPrefix+"trigger:")
}

// newAccumulatorStore keeps tallies in the table store, next to the Jobs rows, when there is no Redis.
//
//nolint:ireturn // the Redis and table stores share the port.
func newAccumulatorStore(infra *Infrastructure, cfg config.RedisConfig, now func() time.Time) core.AccumulatorStore {
	if infra.Redis == nil {
		return data.NewTableAccumulatorRepo(infra.Store, now)
	}
	return data.NewRedisAccumulatorRepo(infra.Redis, data.AccumulatorRepoOptions{
		Prefix: cfg.KeyPrefix + "senders:",
		TTL:    cfg.AccumulatorTTL,
	})
}

// newLease returns nil when leasing is off or there is no Redis to share it through.
//
//nolint:ireturn // nil disables leasing in the runner.
func newLease(infra *Infrastructure, cfg *config.AppConfig) core.Lease {
	if !cfg.Scheduler.UseLease || infra.Redis == nil {
		return nil
	}
	return redisadapter.NewLeaseWithPrefix(infra.Redis, cfg.Redis.KeyPrefix+"lease:")
}
