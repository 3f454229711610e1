package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/inboxjobs/config"
)

// RunOptions holds what RunServices needs to start the enabled services.
type RunOptions struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// Listener overrides the HTTP listen address. Optional.
	Listener net.Listener
}

// RunServices runs every enabled service until SIGINT, SIGTERM, ctx cancellation or the
// first service failure, and waits for all of them to stop.
func RunServices(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := opts.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeScheduler] {
		if opts.Services.Runner == nil {
			return errors.New("scheduler service enabled but no runner was built")
		}
		if err = ensureSchemaAtStartup(ctx, opts.Services, logger); err != nil {
			return err
		}
		if err = resumePendingJobs(ctx, opts.Services); err != nil {
			return err
		}
		g.Go(func() error {
			return opts.Services.Runner.Run(gctx)
		})
	}

	if enabled[config.ServiceModeHTTP] {
		server := NewHTTPServer(opts.Config.HTTP, opts.Services, logger)
		ln := opts.Listener
		if ln == nil {
			var lc net.ListenConfig
			if ln, err = lc.Listen(ctx, "tcp", server.Addr); err != nil {
				stop()
				return errors.Join(fmt.Errorf("listen %s: %w", server.Addr, err), g.Wait())
			}
		}
		g.Go(func() error {
			return ServeHTTP(gctx, server, ln, opts.Config.HTTP.ShutdownTimeout, logger)
		})
	}

	err = g.Wait()
	logger.InfoContext(ctx, "all services stopped")
	return err
}

// ensureSchemaAtStartup refuses to start the scheduler against tables missing a required column.
func ensureSchemaAtStartup(ctx context.Context, services ServiceContainer, logger *slog.Logger) error {
	if services.Repo == nil {
		return nil
	}
	if err := services.Repo.CheckSchema(ctx); err != nil {
		logger.ErrorContext(ctx, "table schema check failed", "error", err)
		return fmt.Errorf("schema check: %w", err)
	}
	return nil
}

// resumePendingJobs re-registers the wake-up for jobs left queued or running by a previous process.
func resumePendingJobs(ctx context.Context, services ServiceContainer) error {
	if services.Jobs == nil {
		return nil
	}
	if _, err := services.Jobs.ResumeTrigger(ctx); err != nil {
		return fmt.Errorf("resume pending jobs: %w", err)
	}
	return nil
}
