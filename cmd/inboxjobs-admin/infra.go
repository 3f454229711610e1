package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/target/inboxjobs/internal/bootstrap"
	"github.com/target/inboxjobs/internal/core"
)

type serviceNeeds struct {
	// Mailbox builds the Gmail provider and with it the scheduler.
	Mailbox bool
	// Redis connects Redis when configured; without it Redis-backed parts fall back to memory.
	Redis bool
	// Override replaces the Gmail provider. Tests use it.
	Override core.Mailbox
}

var errImporterUnavailable = errors.New("legacy import requires redis; configure REDIS_URI and unset REDIS_DISABLED")

// withServices opens the configured infrastructure, wires the services a command needs
// and closes everything once fn returns.
func withServices(
	cmdCtx *commandContext,
	needs serviceNeeds,
	fn func(ctx context.Context, services bootstrap.ServiceContainer) error,
) (err error) {
	ctx := cmdCtx.Ctx
	infra, err := bootstrap.OpenInfrastructure(ctx, &cmdCtx.Config, bootstrap.InfraOptions{
		SkipRedis: !needs.Redis,
	}, cmdCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := infra.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:         &cmdCtx.Config,
		Infra:          infra,
		Mailbox:        needs.Override,
		WithoutMailbox: !needs.Mailbox && needs.Override == nil,
		Logger:         cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("init services: %w", err)
	}
	return fn(ctx, services)
}
