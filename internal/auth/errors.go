// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Domain errors. Returned errors wrap one of these so callers can branch with
// errors.Is while the oops code stays stable for logs and transports.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidHierarchy   = errors.New("role and teacher do not form a valid hierarchy")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid reset token")
	ErrTokenExpired       = errors.New("reset token has expired")
	ErrTokenAlreadyUsed   = errors.New("reset token has already been used")
	ErrInvalidInput       = errors.New("invalid input")
)

// ErrUnavailable marks storage timeouts and connection failures. Unlike the
// domain errors above it is safe to retry the operation that returned it.
var ErrUnavailable = errors.New("storage unavailable")

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// invalidCredentials is the single failure returned by Login, whichever check failed.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

func invalidToken() error {
	return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
}

func invalidHierarchy(format string, args ...any) error {
	return oops.Code("USER_INVALID_HIERARCHY").Wrapf(ErrInvalidHierarchy, format, args...)
}

func invalidInput(field, format string, args ...any) error {
	return oops.Code("AUTH_INVALID_INPUT").With("field", field).Wrapf(ErrInvalidInput, format, args...)
}
