// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsTransient reports whether err came from the storage layer being slow or
// unreachable rather than from the data itself. Callers may retry these.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.QueryCanceled,
			pgerrcode.LockNotAvailable,
			pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected,
			pgerrcode.AdminShutdown,
			pgerrcode.CrashShutdown,
			pgerrcode.CannotConnectNow,
			pgerrcode.TooManyConnections:
			return true
		}
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code)
	}

	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr) || pgconn.SafeToRetry(err)
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// returning the violated constraint name.
func IsUniqueViolation(err error) (string, bool) {
	return constraintViolation(err, pgerrcode.UniqueViolation)
}

// IsCheckViolation reports whether err is a CHECK constraint violation.
func IsCheckViolation(err error) (string, bool) {
	return constraintViolation(err, pgerrcode.CheckViolation)
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) (string, bool) {
	return constraintViolation(err, pgerrcode.ForeignKeyViolation)
}

func constraintViolation(err error, code string) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr.ConstraintName, true
	}
	return "", false
}
