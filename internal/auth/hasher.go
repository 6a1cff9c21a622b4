// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash produces a PHC-encoded hash of password.
	Hash(password string) (string, error)

	// Verify returns (true, nil) on match, (false, nil) on mismatch and an
	// error only when hash cannot be parsed.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade reports whether hash was produced with weaker settings
	// than the hasher currently uses.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher with argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher using DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates a hasher with explicit cost parameters.
func NewArgon2idHasherWithParams(p Argon2Params) (*Argon2idHasher, error) {
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 || p.SaltLen < 8 || p.KeyLen < 16 {
		return nil, oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("time", p.Time).
			With("memory", p.Memory).
			With("threads", p.Threads).
			Errorf("argon2id parameters out of range")
	}
	return &Argon2idHasher{params: p}, nil
}

// Hash produces $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in encoded and
// compares in constant time.
func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	phc, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), phc.salt, phc.params.Time, phc.params.Memory, phc.params.Threads, phc.params.KeyLen)
	return subtle.ConstantTimeCompare(computed, phc.key) == 1, nil
}

// NeedsUpgrade is true for non-argon2id hashes, unparseable hashes and hashes
// with a lower cost than the hasher's parameters.
func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	phc, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return phc.version != argon2.Version ||
		phc.params.Time < h.params.Time ||
		phc.params.Memory < h.params.Memory ||
		phc.params.Threads < h.params.Threads ||
		phc.params.KeyLen < h.params.KeyLen
}

type phcHash struct {
	version int
	params  Argon2Params
	salt    []byte
	key     []byte
}

func parsePHC(encoded string) (*phcHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	out := &phcHash{}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &out.version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &out.params.Memory, &out.params.Time, &threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}
	out.params.Threads = uint8(threads)

	var err error
	if out.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if out.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(out.key) == 0 || len(out.key) > 1<<10 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(out.key))
	}
	out.params.SaltLen = uint32(len(out.salt))
	out.params.KeyLen = uint32(len(out.key))
	return out, nil
}

// Compile-time interface check.
var _ PasswordHasher = (*Argon2idHasher)(nil)
