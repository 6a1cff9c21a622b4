// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Credentials owns password hashes: producing, checking and replacing them.
type Credentials struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewCredentials creates a Credentials store.
func NewCredentials(users UserRepository, hasher PasswordHasher) (*Credentials, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Credentials{users: users, hasher: hasher}, nil
}

// Hash hashes a plaintext password.
func (c *Credentials) Hash(plaintext string) (string, error) {
	hash, err := c.hasher.Hash(plaintext)
	if err != nil {
		return "", oops.With("operation", "hash password").Wrap(err)
	}
	return hash, nil
}

// Verify checks plaintext against hash in constant time.
func (c *Credentials) Verify(plaintext, hash string) (bool, error) {
	ok, err := c.hasher.Verify(plaintext, hash)
	if err != nil {
		return false, oops.With("operation", "verify password").Wrap(err)
	}
	return ok, nil
}

// NeedsUpgrade reports whether hash should be replaced on the next login.
func (c *Credentials) NeedsUpgrade(hash string) bool {
	return c.hasher.NeedsUpgrade(hash)
}

// UpdatePassword stores a new hash for userID.
func (c *Credentials) UpdatePassword(ctx context.Context, userID ulid.ULID, newHash string) error {
	if newHash == "" {
		return invalidInput("password_hash", "password hash cannot be empty")
	}
	if err := c.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return oops.With("operation", "update password").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}
