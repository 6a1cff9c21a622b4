// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

// Package postgres provides PostgreSQL implementations of the auth repositories.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/store"
)

// querier executes statements on either the pool or the transaction in ctx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// poolIface is the subset of *pgxpool.Pool the repositories use.
type poolIface interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type txKey struct{}

// conn returns the transaction stored in ctx by Transactor, or pool.
func conn(ctx context.Context, pool poolIface) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// dbError wraps a driver error. Timeouts and connection failures become
// auth.ErrUnavailable with code STORAGE_UNAVAILABLE; anything else keeps code.
func dbError(err error, code string, kv ...any) error {
	if store.IsTransient(err) {
		return oops.Code("STORAGE_UNAVAILABLE").With(kv...).Wrap(fmt.Errorf("%w: %w", auth.ErrUnavailable, err))
	}
	return oops.Code(code).With(kv...).Wrap(err)
}

func ulidToStringPtr(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalULID(s *string, field string) (*ulid.ULID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := ulid.Parse(*s)
	if err != nil {
		return nil, oops.Code("DB_INVALID_ID").With("operation", "parse "+field).With(field, *s).Wrap(err)
	}
	return &id, nil
}

func parseULID(s, field string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("DB_INVALID_ID").With("operation", "parse "+field).With(field, s).Wrap(err)
	}
	return id, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
