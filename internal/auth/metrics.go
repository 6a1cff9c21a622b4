// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Login outcomes.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Reset token events.
const (
	TokenEventIssued   = "issued"
	TokenEventConsumed = "consumed"
	TokenEventExpired  = "rejected_expired"
	TokenEventUsed     = "rejected_used"
	TokenEventInvalid  = "rejected_invalid"
	TokenEventPurged   = "purged"
)

// LoginAttempts counts Login calls by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var LoginAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "zyric_login_attempts_total",
		Help: "Total number of login attempts",
	},
	[]string{"outcome"},
)

// ResetTokens counts reset token lifecycle events.
// Use RegisterMetrics to register this with a Prometheus registry.
var ResetTokens = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "zyric_reset_tokens_total",
		Help: "Total number of password reset token events",
	},
	[]string{"event"},
)

// RegisterMetrics registers auth metrics with reg. Panics on duplicate
// registration, following prometheus convention.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(LoginAttempts)
	reg.MustRegister(ResetTokens)
}

func recordLogin(outcome string) {
	LoginAttempts.WithLabelValues(outcome).Inc()
}

func recordTokenEvent(event string, n int) {
	ResetTokens.WithLabelValues(event).Add(float64(n))
}
