// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Password length limits. The upper bound keeps hashing cost predictable.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// ValidatePassword enforces the password policy: 8 to 72 characters with at
// least one digit and one uppercase letter.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return invalidInput("password", "password must be at least %d characters", MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return invalidInput("password", "password must be at most %d characters", MaxPasswordLength)
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return invalidInput("password", "password must contain at least one digit")
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return invalidInput("password", "password must contain at least one uppercase letter")
	}
	return nil
}
