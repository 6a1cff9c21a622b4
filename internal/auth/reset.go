// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32 // 256 bits, 64 hex chars
	DefaultResetTTL  = time.Hour
	resetTokenHexLen = ResetTokenBytes * 2
)

// TokenState is the lifecycle state of a reset token. Consumed and expired
// are terminal; a token never returns to issued.
type TokenState string

// Token states.
const (
	TokenIssued   TokenState = "issued"
	TokenConsumed TokenState = "consumed"
	TokenExpired  TokenState = "expired"
)

// PasswordResetToken is a single-use, time-limited credential for setting a
// new password. Only the SHA-256 digest of the secret is stored.
type PasswordResetToken struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// State derives the token state at now. Consumption takes precedence over
// expiry.
func (t *PasswordResetToken) State(now time.Time) TokenState {
	switch {
	case t.Used:
		return TokenConsumed
	case !now.Before(t.ExpiresAt):
		return TokenExpired
	default:
		return TokenIssued
	}
}

// CheckConsumable returns nil only for a token in the issued state.
func (t *PasswordResetToken) CheckConsumable(now time.Time) error {
	switch t.State(now) {
	case TokenConsumed:
		return oops.Code("RESET_TOKEN_USED").With("token_id", t.ID.String()).Wrap(ErrTokenAlreadyUsed)
	case TokenExpired:
		return oops.Code("RESET_TOKEN_EXPIRED").
			With("token_id", t.ID.String()).
			With("expired_at", t.ExpiresAt).
			Wrap(ErrTokenExpired)
	}
	return nil
}

// GenerateResetToken returns a random hex token and the digest to store.
func GenerateResetToken() (token, hash string, err error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(buf)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the hex SHA-256 digest under which a token is stored.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// wellFormedToken rejects input that could never have been issued, saving
// a round trip to the database.
func wellFormedToken(token string) bool {
	if len(token) != resetTokenHexLen {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// PasswordResetRepository manages reset token persistence. Methods called
// with a context from Transactor.InTransaction run inside that transaction.
type PasswordResetRepository interface {
	// Create stores a token. An unknown user yields ErrNotFound.
	Create(ctx context.Context, token *PasswordResetToken) error

	// DeleteUnused removes the user's tokens that have not been consumed.
	DeleteUnused(ctx context.Context, userID ulid.ULID) (int64, error)

	// GetByTokenHashForUpdate reads a token and holds an exclusive row lock
	// until the surrounding transaction ends.
	GetByTokenHashForUpdate(ctx context.Context, tokenHash string) (*PasswordResetToken, error)

	// MarkUsed flips used to true only if it is still false. When another
	// writer got there first it returns ErrTokenAlreadyUsed.
	MarkUsed(ctx context.Context, id ulid.ULID, at time.Time) error

	// DeleteExpired removes tokens that expired before the given time.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
