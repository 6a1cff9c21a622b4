// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package audit records login attempts in an append-only history.
//
// Recorder accepts attempts without blocking the login path, batches them to
// a Writer, retries transient storage failures and, as a last resort,
// appends them to a JSON-lines write-ahead log that ReplayWAL re-imports.
package audit

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Column limits of login_history.
const (
	MaxIPAddressLength = 45
	MaxUserAgentLength = 500
)

// LoginAttempt is one authentication attempt, successful or not. UserID is
// set whenever the email matched a known user.
type LoginAttempt struct {
	ID        ulid.ULID  `json:"id"`
	UserID    *ulid.ULID `json:"user_id,omitempty"`
	Email     string     `json:"email"`
	IPAddress string     `json:"ip_address,omitempty"`
	UserAgent string     `json:"user_agent,omitempty"`
	Success   bool       `json:"success"`
	At        time.Time  `json:"login_at"`
}

// Writer persists batches of attempts.
type Writer interface {
	WriteBatch(ctx context.Context, attempts []LoginAttempt) error
}

// normalize fills in the ID and timestamp, replaces invalid UTF-8 in the
// client-supplied fields and clips them to the column limits.
func (a *LoginAttempt) normalize(now time.Time) {
	if a.ID == (ulid.ULID{}) {
		a.ID = ulid.Make()
	}
	if a.At.IsZero() {
		a.At = now
	}
	a.Email = strings.ToValidUTF8(a.Email, string(utf8.RuneError))
	a.IPAddress = clip(strings.ToValidUTF8(a.IPAddress, string(utf8.RuneError)), MaxIPAddressLength)
	a.UserAgent = clip(strings.ToValidUTF8(a.UserAgent, string(utf8.RuneError)), MaxUserAgentLength)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
