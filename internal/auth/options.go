// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"log/slog"
	"time"
)

const (
	// DefaultConsumeTimeout bounds the work that follows a successful token claim.
	DefaultConsumeTimeout = 5 * time.Second
	// DefaultDeliveryTimeout bounds issuing and sending one reset token.
	DefaultDeliveryTimeout = 30 * time.Second
)

type options struct {
	logger          *slog.Logger
	clock           func() time.Time
	resetTTL        time.Duration
	revokePrior     bool
	consumeTimeout  time.Duration
	deliveryTimeout time.Duration
}

func defaultOptions() options {
	return options{
		logger:          slog.Default(),
		clock:           time.Now,
		resetTTL:        DefaultResetTTL,
		revokePrior:     true,
		consumeTimeout:  DefaultConsumeTimeout,
		deliveryTimeout: DefaultDeliveryTimeout,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the components in this package. Options that do not
// apply to a component are ignored by it.
type Option func(*options)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithResetTTL sets how long tokens issued by Service.ForgotPassword stay valid.
func WithResetTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.resetTTL = ttl
		}
	}
}

// WithRevokePriorTokens controls whether issuing a token deletes the user's
// other unconsumed tokens in the same transaction. Defaults to true.
func WithRevokePriorTokens(revoke bool) Option {
	return func(o *options) {
		o.revokePrior = revoke
	}
}

// WithConsumeTimeout bounds the password update and commit that follow a
// successful token claim. That work is detached from caller cancellation.
func WithConsumeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.consumeTimeout = d
		}
	}
}

// WithDeliveryTimeout bounds the background issue and send started by
// Service.ForgotPassword.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.deliveryTimeout = d
		}
	}
}
