// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package audit

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxHistoryPage caps History page sizes.
const MaxHistoryPage = 200

// poolIface is the subset of *pgxpool.Pool used by PostgresWriter.
type poolIface interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var loginHistoryColumns = []string{"id", "user_id", "email", "login_at", "ip_address", "user_agent", "success"}

// PostgresWriter stores login attempts in the login_history table.
type PostgresWriter struct {
	pool poolIface
}

// NewPostgresWriter creates a PostgresWriter. pool is usually a *pgxpool.Pool.
func NewPostgresWriter(pool poolIface) *PostgresWriter {
	return &PostgresWriter{pool: pool}
}

// WriteBatch copies attempts into login_history in one round trip.
func (w *PostgresWriter) WriteBatch(ctx context.Context, attempts []LoginAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	rows := make([][]any, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		rows[i] = []any{
			a.ID.String(),
			ulidPtrToString(a.UserID),
			a.Email,
			a.At,
			nullable(a.IPAddress),
			nullable(a.UserAgent),
			a.Success,
		}
	}

	n, err := w.pool.CopyFrom(ctx, pgx.Identifier{"login_history"}, loginHistoryColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").
			With("operation", "copy login_history").
			With("count", len(attempts)).
			Wrap(err)
	}
	if n != int64(len(attempts)) {
		return oops.Code("AUDIT_WRITE_FAILED").
			With("expected", len(attempts)).
			With("written", n).
			Errorf("short copy into login_history")
	}
	return nil
}

// History returns up to limit attempts for userID, newest first. Pass the
// last ID of a page as before to get the next one; a zero before starts at
// the newest attempt.
func (w *PostgresWriter) History(ctx context.Context, userID, before ulid.ULID, limit int) ([]LoginAttempt, error) {
	if limit <= 0 || limit > MaxHistoryPage {
		limit = MaxHistoryPage
	}

	var (
		rows pgx.Rows
		err  error
	)
	if before == (ulid.ULID{}) {
		rows, err = w.pool.Query(ctx, `
			SELECT id, user_id, email, login_at, ip_address, user_agent, success
			FROM login_history
			WHERE user_id = $1
			ORDER BY id DESC
			LIMIT $2
		`, userID.String(), limit)
	} else {
		rows, err = w.pool.Query(ctx, `
			SELECT id, user_id, email, login_at, ip_address, user_agent, success
			FROM login_history
			WHERE user_id = $1 AND id < $2
			ORDER BY id DESC
			LIMIT $3
		`, userID.String(), before.String(), limit)
	}
	if err != nil {
		return nil, oops.Code("AUDIT_HISTORY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	defer rows.Close()

	var out []LoginAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("AUDIT_HISTORY_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (LoginAttempt, error) {
	var (
		idStr     string
		userIDStr *string
		ip, agent *string
		a         LoginAttempt
	)
	if err := row.Scan(&idStr, &userIDStr, &a.Email, &a.At, &ip, &agent, &a.Success); err != nil {
		return a, oops.Code("AUDIT_SCAN_FAILED").Wrap(err)
	}
	id, err := ulid.Parse(idStr)
	if err != nil {
		return a, oops.Code("AUDIT_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	a.ID = id
	if userIDStr != nil {
		uid, err := ulid.Parse(*userIDStr)
		if err != nil {
			return a, oops.Code("AUDIT_SCAN_FAILED").With("user_id", *userIDStr).Wrap(err)
		}
		a.UserID = &uid
	}
	if ip != nil {
		a.IPAddress = *ip
	}
	if agent != nil {
		a.UserAgent = *agent
	}
	return a, nil
}

func ulidPtrToString(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time interface check.
var _ Writer = (*PostgresWriter)(nil)
