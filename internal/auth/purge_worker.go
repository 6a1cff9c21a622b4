// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/zyric/identity/pkg/errutil"
)

// DefaultPurgeInterval is how often expired reset tokens are removed.
const DefaultPurgeInterval = 15 * time.Minute

// TokenPurger removes expired reset tokens. *ResetTokenManager implements it.
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// PurgeWorker periodically removes expired reset tokens.
type PurgeWorker struct {
	purger   TokenPurger
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPurgeWorker creates a worker that purges every interval.
func NewPurgeWorker(purger TokenPurger, interval time.Duration, opts ...Option) (*PurgeWorker, error) {
	if purger == nil {
		return nil, oops.Errorf("token purger is required")
	}
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	o := buildOptions(opts)
	return &PurgeWorker{purger: purger, interval: interval, logger: o.logger}, nil
}

// RunOnce performs a single purge.
func (w *PurgeWorker) RunOnce(ctx context.Context) (int64, error) {
	n, err := w.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, oops.With("operation", "purge cycle").Wrap(err)
	}
	return n, nil
}

// Start runs a purge immediately and then every interval until Stop is
// called or ctx ends. Starting a running worker is an error.
func (w *PurgeWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return oops.Code("WORKER_ALREADY_STARTED").Errorf("purge worker already started")
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop stops the worker and waits for an in-flight purge to finish.
func (w *PurgeWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *PurgeWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

func (w *PurgeWorker) cycle(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		errutil.LogError(w.logger, "reset token purge failed", err)
	}
}
