// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package store owns the PostgreSQL connection pool, schema migrations and
// storage error classification shared by the identity repositories.
package store

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolOptions bounds every storage call made through the pool.
type PoolOptions struct {
	MaxConns         int32
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
	// ConnectAttempts is how many pings are tried before giving up.
	ConnectAttempts uint64
}

// DefaultPoolOptions returns the options used when configuration is silent.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:         10,
		ConnectTimeout:   5 * time.Second,
		StatementTimeout: 5 * time.Second,
		ConnectAttempts:  5,
	}
}

// Connect opens a pool for dsn and waits until the database answers a ping.
// Each session runs with statement_timeout so a stuck query surfaces as a
// retryable storage error instead of blocking the caller.
func Connect(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := poolConfig(dsn, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	attempts := opts.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnConfig.ConnectTimeout)
		defer cancel()
		if pingErr := pool.Ping(pingCtx); pingErr != nil {
			slog.Debug("database ping failed", "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}

	return pool, nil
}

func poolConfig(dsn string, opts PoolOptions) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse dsn").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.StatementTimeout > 0 {
		if cfg.ConnConfig.RuntimeParams == nil {
			cfg.ConnConfig.RuntimeParams = map[string]string{}
		}
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.StatementTimeout.Milliseconds(), 10)
	}
	return cfg, nil
}
