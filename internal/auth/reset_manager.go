// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ResetTokenManager issues and consumes password reset tokens.
//
// A token moves from issued to consumed at most once. Consumption locks the
// token row, checks its state, and claims it with a conditional update whose
// row count decides the winner between concurrent requests. The password
// change commits in the same transaction, so a claimed token always comes
// with a changed password.
type ResetTokenManager struct {
	tx             Transactor
	tokens         PasswordResetRepository
	passwords      *Credentials
	logger         *slog.Logger
	clock          func() time.Time
	revokePrior    bool
	consumeTimeout time.Duration
}

// NewResetTokenManager creates a ResetTokenManager.
func NewResetTokenManager(
	tx Transactor,
	tokens PasswordResetRepository,
	passwords *Credentials,
	opts ...Option,
) (*ResetTokenManager, error) {
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("reset repository is required")
	}
	if passwords == nil {
		return nil, oops.Errorf("credential store is required")
	}
	o := buildOptions(opts)
	return &ResetTokenManager{
		tx:             tx,
		tokens:         tokens,
		passwords:      passwords,
		logger:         o.logger,
		clock:          o.clock,
		revokePrior:    o.revokePrior,
		consumeTimeout: o.consumeTimeout,
	}, nil
}

// Issue creates a token for userID valid for ttl and returns the raw secret.
// The raw secret is never stored; callers hand it to the user and drop it.
func (m *ResetTokenManager) Issue(ctx context.Context, userID ulid.ULID, ttl time.Duration) (string, *PasswordResetToken, error) {
	if ttl <= 0 {
		return "", nil, invalidInput("ttl", "token lifetime must be positive")
	}

	raw, hash, err := GenerateResetToken()
	if err != nil {
		return "", nil, err
	}

	now := m.clock()
	token := &PasswordResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	var revoked int64
	err = m.tx.InTransaction(ctx, func(ctx context.Context) error {
		if m.revokePrior {
			n, err := m.tokens.DeleteUnused(ctx, userID)
			if err != nil {
				return err
			}
			revoked = n
		}
		return m.tokens.Create(ctx, token)
	})
	if err != nil {
		return "", nil, oops.With("operation", "issue reset token").With("user_id", userID.String()).Wrap(err)
	}

	recordTokenEvent(TokenEventIssued, 1)
	m.logger.InfoContext(ctx, "password reset token issued",
		"user_id", userID.String(),
		"token_id", token.ID.String(),
		"expires_at", token.ExpiresAt,
		"revoked", revoked)
	return raw, token, nil
}

// ValidateAndConsume claims the token identified by rawToken and sets the
// owner's password hash to newHash, returning the owner's ID.
//
// It fails with ErrInvalidToken for unknown tokens, ErrTokenExpired once
// expires_at has passed and ErrTokenAlreadyUsed when the token was consumed,
// including by a concurrent call that won the claim. None of these are
// retryable.
func (m *ResetTokenManager) ValidateAndConsume(ctx context.Context, rawToken, newHash string) (ulid.ULID, error) {
	if !wellFormedToken(rawToken) {
		recordTokenEvent(TokenEventInvalid, 1)
		return ulid.ULID{}, invalidToken()
	}
	if newHash == "" {
		return ulid.ULID{}, invalidInput("password_hash", "password hash cannot be empty")
	}

	var userID ulid.ULID
	err := m.tx.InTransaction(ctx, func(ctx context.Context) error {
		token, err := m.tokens.GetByTokenHashForUpdate(ctx, HashResetToken(rawToken))
		if errors.Is(err, ErrNotFound) {
			return invalidToken()
		}
		if err != nil {
			return err
		}

		now := m.clock()
		if err := token.CheckConsumable(now); err != nil {
			return err
		}
		if err := m.tokens.MarkUsed(ctx, token.ID, now); err != nil {
			return err
		}

		// The token is claimed. Finish even if the caller goes away so the
		// claim is never left without its password change.
		finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.consumeTimeout)
		defer cancel()
		if err := m.passwords.UpdatePassword(finishCtx, token.UserID, newHash); err != nil {
			return err
		}
		userID = token.UserID
		return nil
	})
	if err != nil {
		m.recordRejection(err)
		return ulid.ULID{}, oops.With("operation", "consume reset token").Wrap(err)
	}

	recordTokenEvent(TokenEventConsumed, 1)
	m.logger.InfoContext(ctx, "password reset token consumed", "user_id", userID.String())
	return userID, nil
}

func (m *ResetTokenManager) recordRejection(err error) {
	switch {
	case errors.Is(err, ErrInvalidToken):
		recordTokenEvent(TokenEventInvalid, 1)
	case errors.Is(err, ErrTokenExpired):
		recordTokenEvent(TokenEventExpired, 1)
	case errors.Is(err, ErrTokenAlreadyUsed):
		recordTokenEvent(TokenEventUsed, 1)
	}
}

// PurgeExpired deletes tokens whose expiry has passed and returns how many
// were removed. A token locked by an in-flight consumption is waited on, and
// consumption of an unexpired token always wins.
func (m *ResetTokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.tokens.DeleteExpired(ctx, m.clock())
	if err != nil {
		return 0, oops.With("operation", "purge expired reset tokens").Wrap(err)
	}
	if n > 0 {
		recordTokenEvent(TokenEventPurged, int(n))
		m.logger.InfoContext(ctx, "purged expired reset tokens", "count", n)
	}
	return n, nil
}
