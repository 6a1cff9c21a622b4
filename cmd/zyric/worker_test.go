// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMonitorServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		send       func(ch chan error, cancelParent context.CancelFunc)
		wantCancel bool
	}{
		{"server error cancels", func(ch chan error, _ context.CancelFunc) { ch <- errors.New("listener closed") }, true},
		{"closed channel exits quietly", func(ch chan error, _ context.CancelFunc) { close(ch) }, false},
		{"parent done exits", func(_ chan error, cancelParent context.CancelFunc) { cancelParent() }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			parent, cancelParent := context.WithCancel(context.Background())
			defer cancelParent()
			cancelled := make(chan struct{})
			cancel := func() { close(cancelled) }

			errCh := make(chan error, 1)
			done := make(chan struct{})
			go func() {
				defer close(done)
				monitorServerErrors(parent, cancel, errCh, "observability", discardLogger())
			}()

			tt.send(errCh, cancelParent)

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("monitor did not exit")
			}
			select {
			case <-cancelled:
				assert.True(t, tt.wantCancel, "unexpected cancel")
			default:
				assert.False(t, tt.wantCancel, "expected cancel")
			}
		})
	}
}
