// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/auth/mocks"
	"github.com/zyric/identity/pkg/errutil"
)

func TestPurgeWorker_RunOnce(t *testing.T) {
	purger := mocks.NewMockTokenPurger(t)
	purger.On("PurgeExpired", mock.Anything).Return(int64(4), nil).Once()
	purger.On("PurgeExpired", mock.Anything).Return(int64(0), assert.AnError).Once()

	w, err := auth.NewPurgeWorker(purger, time.Minute)
	require.NoError(t, err)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = w.RunOnce(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPurgeWorker_StartRunsUntilStopped(t *testing.T) {
	defer goleak.VerifyNone(t)

	purger := mocks.NewMockTokenPurger(t)
	cycles := make(chan struct{}, 16)
	purger.On("PurgeExpired", mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case cycles <- struct{}{}:
			default:
			}
		}).
		Return(int64(0), nil)

	w, err := auth.NewPurgeWorker(purger, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	for range 2 {
		select {
		case <-cycles:
		case <-time.After(2 * time.Second):
			t.Fatal("purge cycle did not run")
		}
	}

	err = w.Start(context.Background())
	errutil.AssertErrorCode(t, err, "WORKER_ALREADY_STARTED")

	w.Stop()
	w.Stop()
}

func TestPurgeWorker_LogsFailedCycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	logger, buf := bufferLogger()
	purger := mocks.NewMockTokenPurger(t)
	done := make(chan struct{})
	purger.On("PurgeExpired", mock.Anything).
		Run(func(mock.Arguments) {
			select {
			case <-done:
			default:
				close(done)
			}
		}).
		Return(int64(0), assert.AnError)

	w, err := auth.NewPurgeWorker(purger, time.Hour, auth.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	<-done
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "reset token purge failed")
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()
}

func TestNewPurgeWorker_Defaults(t *testing.T) {
	_, err := auth.NewPurgeWorker(nil, time.Minute)
	assert.ErrorContains(t, err, "token purger is required")

	w, err := auth.NewPurgeWorker(mocks.NewMockTokenPurger(t), 0)
	require.NoError(t, err)
	assert.NotNil(t, w)
}
