package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/inboxjobs/config"
	"github.com/target/inboxjobs/internal/core"
	"github.com/target/inboxjobs/internal/data"
	"github.com/target/inboxjobs/internal/observability/statsd"
)

// InfraOptions selects which shared dependencies OpenInfrastructure connects.
type InfraOptions struct {
	// Migrate applies the embedded migrations after connecting to PostgreSQL.
	Migrate bool
	// SkipRedis leaves Redis unconnected even when configured.
	SkipRedis bool
}

// Infrastructure holds the connections shared by services and CLI commands.
type Infrastructure struct {
	DB    *sql.DB               // nil for the memory store backend
	Redis redis.UniversalClient // nil when Redis is disabled
	Store core.TableStore
	// Metrics is never nil; it drops everything when metrics are disabled.
	Metrics *statsd.Client
}

// OpenInfrastructure connects the tabular store and, unless disabled, Redis.
func OpenInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	opts InfraOptions,
	logger *slog.Logger,
) (*Infrastructure, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metricsClient, err := statsd.NewClient(ctx, statsd.Config{
		Enabled: cfg.Metrics.IsEnabled(),
		Address: cfg.Metrics.StatsdAddress,
		Prefix:  cfg.Metrics.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect statsd: %w", err)
	}
	infra := &Infrastructure{Metrics: metricsClient}
	switch cfg.Store {
	case config.StoreBackendMemory:
		logger.WarnContext(ctx, "using in-memory table store; jobs are lost on restart")
		infra.Store = data.NewMemoryTableStore()
	default:
		db, dbErr := ConnectDB(ctx, cfg.Postgres, logger)
		if dbErr != nil {
			return nil, errors.Join(fmt.Errorf("connect db: %w", dbErr), infra.Close())
		}
		infra.DB = db
		if opts.Migrate {
			if err = RunMigrations(ctx, db, logger); err != nil {
				return nil, errors.Join(err, infra.Close())
			}
		}
		infra.Store = data.NewPGTableStore(db)
	}

	if cfg.Redis.Disabled || opts.SkipRedis {
		return infra, nil
	}
	client, err := ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect redis: %w", err), infra.Close())
	}
	infra.Redis = client
	return infra, nil
}

// Close releases every open connection.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if err := i.Metrics.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close statsd: %w", err))
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
