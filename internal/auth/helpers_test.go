// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

// inlineTx runs fn directly and counts how often it was asked to.
type inlineTx struct {
	mu    sync.Mutex
	calls int
}

func (tx *inlineTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	tx.calls++
	tx.mu.Unlock()
	return fn(ctx)
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// logBuffer is a bytes.Buffer safe for a logger goroutine and a test reader.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// bufferLogger returns a JSON logger writing into the returned buffer.
func bufferLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
