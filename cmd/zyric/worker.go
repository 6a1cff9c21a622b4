// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/observability"
	"github.com/zyric/identity/internal/store"
	"github.com/zyric/identity/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewWorkerCmd creates the worker command.
func NewWorkerCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run background maintenance and serve metrics",
		Long: `Run the long-lived worker: replays the login audit write-ahead log,
purges expired password reset tokens on reset.purge_interval and serves
/metrics, /healthz/liveness and /healthz/readiness on observability.addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd, deps)
		},
	}
}

func runWorker(cmd *cobra.Command, deps *Deps) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := openApp(ctx, cfg, logger, cmd.OutOrStdout(), deps)
	if err != nil {
		return err
	}
	defer a.close()

	replayed, err := a.recorder.ReplayWAL(ctx)
	if err != nil {
		errutil.LogError(logger, "login audit WAL replay failed", err)
	} else if replayed > 0 {
		logger.Info("replayed login audit WAL", "attempts", replayed)
	}

	purger, err := auth.NewPurgeWorker(a.resets, cfg.Reset.PurgeInterval, auth.WithLogger(logger))
	if err != nil {
		return oops.With("component", "purge worker").Wrap(err)
	}
	if err := purger.Start(ctx); err != nil {
		return err
	}
	defer purger.Stop()

	var obs *observability.Server
	if cfg.Observability.Addr != "" {
		obs = observability.NewServer(cfg.Observability.Addr, a.pool.Ping,
			observability.WithLogger(logger),
			observability.WithRegistrars(auth.RegisterMetrics, audit.RegisterMetrics),
			observability.WithCollectors(store.NewPoolCollector(a.pool)),
		)
		errCh, err := obs.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, errCh, "observability", logger)
	}

	cmd.Println("Worker started")
	logger.Info("worker ready",
		"purge_interval", cfg.Reset.PurgeInterval.String(),
		"metrics_addr", cfg.Observability.Addr,
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	if obs != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error is received, the channel is closed, or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

// NewPurgeCmd creates the one-shot purge command.
func NewPurgeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired password reset tokens once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, deps, func(ctx context.Context, a *app) error {
				purger, err := auth.NewPurgeWorker(a.resets, a.cfg.Reset.PurgeInterval, auth.WithLogger(a.logger))
				if err != nil {
					return err
				}
				n, err := purger.RunOnce(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("Purged %d expired reset tokens\n", n)
				return nil
			})
		},
	}
}

// withApp runs fn with a wired app bound to the command's context.
func withApp(cmd *cobra.Command, deps *Deps, fn func(ctx context.Context, a *app) error) error {
	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cfg, logger, cmd.OutOrStdout(), deps)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}
