// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/internal/store"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	pool poolIface
}

// NewPasswordResetRepository creates a PasswordResetRepository.
func NewPasswordResetRepository(pool poolIface) *PasswordResetRepository {
	return &PasswordResetRepository{pool: pool}
}

// Create stores a new token.
func (r *PasswordResetRepository) Create(ctx context.Context, t *auth.PasswordResetToken) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used, used_at, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NULL, $5)
	`, t.ID.String(), t.UserID.String(), t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if err == nil {
		return nil
	}
	if _, ok := store.IsForeignKeyViolation(err); ok {
		return oops.Code("USER_NOT_FOUND").With("user_id", t.UserID.String()).Wrap(auth.ErrNotFound)
	}
	return dbError(err, "RESET_CREATE_FAILED",
		"operation", "insert password_reset_token",
		"user_id", t.UserID.String())
}

// DeleteUnused removes the user's unconsumed tokens. A token locked by an
// in-flight consumption is waited for and skipped once it commits as used.
func (r *PasswordResetRepository) DeleteUnused(ctx context.Context, userID ulid.ULID) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE user_id = $1 AND used = FALSE
	`, userID.String())
	if err != nil {
		return 0, dbError(err, "RESET_REVOKE_FAILED",
			"operation", "delete unused password_reset_tokens",
			"user_id", userID.String())
	}
	return tag.RowsAffected(), nil
}

// GetByTokenHashForUpdate reads a token and locks its row.
func (r *PasswordResetRepository) GetByTokenHashForUpdate(ctx context.Context, tokenHash string) (*auth.PasswordResetToken, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, used, used_at, created_at
		FROM password_reset_tokens
		WHERE token_hash = $1
		FOR UPDATE
	`, tokenHash)

	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_TOKEN_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MarkUsed consumes the token if nobody else has. Zero affected rows means a
// concurrent consumer won.
func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id ulid.ULID, at time.Time) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE password_reset_tokens SET used = TRUE, used_at = $2
		WHERE id = $1 AND used = FALSE
	`, id.String(), at)
	if err != nil {
		return dbError(err, "RESET_CONSUME_FAILED",
			"operation", "mark password_reset_token used",
			"token_id", id.String())
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("RESET_TOKEN_USED").With("token_id", id.String()).Wrap(auth.ErrTokenAlreadyUsed)
	}
	return nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at < $1
	`, before)
	if err != nil {
		return 0, dbError(err, "RESET_DELETE_EXPIRED_FAILED",
			"operation", "delete expired password_reset_tokens")
	}
	return tag.RowsAffected(), nil
}

// scanToken scans a single row. pgx.ErrNoRows is returned unwrapped.
func scanToken(row pgx.Row) (*auth.PasswordResetToken, error) {
	var (
		idStr     string
		userIDStr string
		t         auth.PasswordResetToken
	)
	err := row.Scan(&idStr, &userIDStr, &t.TokenHash, &t.ExpiresAt, &t.Used, &t.UsedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, dbError(err, "RESET_SCAN_FAILED", "operation", "scan password_reset_token")
	}
	if t.ID, err = parseULID(idStr, "token_id"); err != nil {
		return nil, err
	}
	if t.UserID, err = parseULID(userIDStr, "user_id"); err != nil {
		return nil, err
	}
	return &t, nil
}

// Compile-time interface check.
var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
