// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/zyric/identity/internal/audit"
	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/auth/postgres"
	"github.com/zyric/identity/internal/config"
	"github.com/zyric/identity/internal/notify"
	"github.com/zyric/identity/internal/store"
	"github.com/zyric/identity/pkg/errutil"
)

// Deps contains injectable dependencies for commands that touch the database.
// All fields with nil values will use their default implementations.
type Deps struct {
	// Connect opens the connection pool.
	// Default: store.Connect
	Connect func(ctx context.Context, dsn string, opts store.PoolOptions) (*pgxpool.Pool, error)

	// NotifierFactory builds the reset notifier.
	// Default: newNotifier
	NotifierFactory func(cfg *config.Config, out io.Writer, logger *slog.Logger) (auth.ResetNotifier, error)
}

func (d *Deps) withDefaults() *Deps {
	out := Deps{}
	if d != nil {
		out = *d
	}
	if out.Connect == nil {
		out.Connect = store.Connect
	}
	if out.NotifierFactory == nil {
		out.NotifierFactory = newNotifier
	}
	return &out
}

// app is the wired identity stack for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	users     *postgres.UserRepository
	history   *audit.PostgresWriter
	recorder  *audit.Recorder
	directory *auth.Directory
	resets    *auth.ResetTokenManager
	service   *auth.Service
}

// openApp connects to the database and builds every component. The caller
// must call close.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer, deps *Deps) (*app, error) {
	deps = deps.withDefaults()
	if cfg.Database.DSN == "" {
		return nil, oops.Code("CONFIG_INVALID").
			Errorf("database URL is required: set --database-url, database.dsn or %s", config.DatabaseURLEnv)
	}

	notifier, err := deps.NotifierFactory(cfg, out, logger)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("section", "argon2").Wrap(err)
	}

	pool, err := deps.Connect(ctx, cfg.Database.DSN, cfg.PoolOptions())
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	a := &app{cfg: cfg, logger: logger, pool: pool}
	if err := a.wire(hasher, notifier); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(hasher auth.PasswordHasher, notifier auth.ResetNotifier) error {
	opts := a.cfg.AuthOptions(a.logger)

	tx := postgres.NewTransactor(a.pool)
	a.users = postgres.NewUserRepository(a.pool)
	tokens := postgres.NewPasswordResetRepository(a.pool)
	a.history = audit.NewPostgresWriter(a.pool)

	var err error
	if a.recorder, err = audit.NewRecorder(a.history, a.cfg.AuditConfig(), audit.WithLogger(a.logger)); err != nil {
		return oops.With("component", "login audit").Wrap(err)
	}
	if a.directory, err = auth.NewDirectory(tx, a.users, opts...); err != nil {
		return oops.With("component", "user directory").Wrap(err)
	}
	credentials, err := auth.NewCredentials(a.users, hasher)
	if err != nil {
		return oops.With("component", "credential store").Wrap(err)
	}
	if a.resets, err = auth.NewResetTokenManager(tx, tokens, credentials, opts...); err != nil {
		return oops.With("component", "reset tokens").Wrap(err)
	}
	if a.service, err = auth.NewService(a.directory, credentials, a.resets, a.recorder, notifier, opts...); err != nil {
		return oops.With("component", "auth service").Wrap(err)
	}
	return nil
}

// close waits for pending reset deliveries, flushes the audit log and
// releases the pool.
func (a *app) close() {
	if a.service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Reset.DeliveryTimeout)
		if err := a.service.Close(ctx); err != nil {
			errutil.LogError(a.logger, "password reset deliveries still running at exit", err)
		}
		cancel()
	}
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			errutil.LogError(a.logger, "failed to close login audit recorder", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// newNotifier builds the reset notifier named by reset.notifier.
func newNotifier(cfg *config.Config, out io.Writer, logger *slog.Logger) (auth.ResetNotifier, error) {
	switch cfg.Reset.Notifier {
	case config.NotifierConsole:
		return notify.NewConsoleNotifier(out, cfg.Reset.BaseURL), nil
	case config.NotifierLog:
		return notify.NewLogNotifier(logger), nil
	case config.NotifierSMTP:
		n, err := notify.NewSMTPNotifier(cfg.SMTPConfig())
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").
			With("notifier", cfg.Reset.Notifier).
			Errorf("unknown reset notifier %q", cfg.Reset.Notifier)
	}
}
