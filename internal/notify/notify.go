// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package notify delivers password reset tokens to their owners.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/zyric/identity/internal/auth"
)

// ResetLink builds the link a user follows to reset their password. When
// baseURL is empty the raw token is returned on its own.
func ResetLink(baseURL, token string) (string, error) {
	if baseURL == "" {
		return token, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", oops.Code("NOTIFY_INVALID_BASE_URL").With("base_url", baseURL).Errorf("reset base url must be absolute")
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resetBody(link string, expiresAt time.Time) string {
	return strings.Join([]string{
		"You requested a password reset.",
		"",
		"Reset your password using this link:",
		link,
		"",
		"The link expires at " + expiresAt.UTC().Format(time.RFC1123) + ".",
		"If you did not request this, you can ignore this email.",
	}, "\n")
}

// ConsoleNotifier writes the reset link to w. It is meant for local
// development and operator-driven resets from the CLI.
type ConsoleNotifier struct {
	w       io.Writer
	baseURL string
}

// NewConsoleNotifier creates a ConsoleNotifier.
func NewConsoleNotifier(w io.Writer, baseURL string) *ConsoleNotifier {
	return &ConsoleNotifier{w: w, baseURL: baseURL}
}

// SendPasswordReset prints the reset link for to.
func (n *ConsoleNotifier) SendPasswordReset(_ context.Context, to, token string, expiresAt time.Time) error {
	link, err := ResetLink(n.baseURL, token)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(n.w, "Password reset for %s (expires %s):\n%s\n",
		to, expiresAt.UTC().Format(time.RFC3339), link); err != nil {
		return oops.Code("NOTIFY_WRITE_FAILED").Wrap(err)
	}
	return nil
}

// LogNotifier records that a reset was requested without delivering it.
// The token itself is never logged.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendPasswordReset logs the recipient and expiry.
func (n *LogNotifier) SendPasswordReset(ctx context.Context, to, _ string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "password reset delivery skipped",
		"to", to,
		"expires_at", expiresAt)
	return nil
}

// Compile-time interface checks.
var (
	_ auth.ResetNotifier = (*ConsoleNotifier)(nil)
	_ auth.ResetNotifier = (*LogNotifier)(nil)
	_ auth.ResetNotifier = (*SMTPNotifier)(nil)
)
