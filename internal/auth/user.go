// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Role is the tier a user belongs to. It is fixed at creation.
type Role string

// Roles.
const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// Profile field limits.
const (
	MaxNameLength         = 100
	MaxGenderLength       = 20
	MaxOrganizationLength = 255
	MaxAge                = 150
)

// Profile holds the descriptive fields of a user. None of them take part in
// authentication decisions.
type Profile struct {
	FirstName    string
	LastName     string
	Age          *int
	Gender       string
	Organization string
	ProfileImage string
}

// User is an identity record. Email and Role never change after creation and
// users are never deleted.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Role         Role
	TeacherID    *ulid.ULID
	Profile      Profile
	IsActive     bool
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUserParams describes a user to create. PasswordHash must already be hashed.
type NewUserParams struct {
	Email        string
	PasswordHash string
	Role         Role
	TeacherID    *ulid.ULID
	Profile      Profile
}

// ValidateHierarchy is the one place the teacher/student shape is decided:
// a student has a teacher, a teacher has none. Every path that creates or
// changes a user's role or teacher must call it.
func ValidateHierarchy(role Role, teacherID *ulid.ULID) error {
	switch role {
	case RoleStudent:
		if teacherID == nil {
			return invalidHierarchy("student requires a teacher")
		}
	case RoleTeacher:
		if teacherID != nil {
			return invalidHierarchy("teacher cannot have a teacher")
		}
	default:
		return invalidHierarchy("unknown role %q", string(role))
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive. It does not validate.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address, e.g. "a@b.example".
func ValidateEmail(email string) error {
	if email == "" {
		return invalidInput("email", "email cannot be empty")
	}
	if !utf8.ValidString(email) {
		return invalidInput("email", "email must be valid UTF-8")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalidInput("email", "email %q is not a valid address", email)
	}
	return nil
}

// ValidateProfile checks the profile field limits.
func ValidateProfile(p Profile) error {
	if err := validateName("first_name", p.FirstName); err != nil {
		return err
	}
	if err := validateName("last_name", p.LastName); err != nil {
		return err
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > MaxAge) {
		return invalidInput("age", "age must be between 0 and %d", MaxAge)
	}
	for _, f := range [...]struct{ name, value string }{
		{"gender", p.Gender},
		{"organization", p.Organization},
		{"profile_image", p.ProfileImage},
	} {
		if !utf8.ValidString(f.value) {
			return invalidInput(f.name, "%s must be valid UTF-8", f.name)
		}
	}
	if utf8.RuneCountInString(p.Gender) > MaxGenderLength {
		return invalidInput("gender", "gender must be at most %d characters", MaxGenderLength)
	}
	if utf8.RuneCountInString(p.Organization) > MaxOrganizationLength {
		return invalidInput("organization", "organization must be at most %d characters", MaxOrganizationLength)
	}
	if p.ProfileImage != "" {
		u, err := url.Parse(p.ProfileImage)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return invalidInput("profile_image", "profile image must be an http or https URL")
		}
	}
	return nil
}

func validateName(field, value string) error {
	if !utf8.ValidString(value) {
		return invalidInput(field, "%s must be valid UTF-8", field)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n == 0 {
		return invalidInput(field, "%s cannot be empty", field)
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return invalidInput(field, "%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}

// UserRepository manages user persistence. Methods called with a context
// from Transactor.InTransaction run inside that transaction.
type UserRepository interface {
	// Create inserts a user. A taken email yields ErrDuplicateEmail.
	Create(ctx context.Context, user *User) error

	// GetByID returns ErrNotFound when no user has id.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByIDForShare reads a user and holds a shared row lock until the
	// surrounding transaction ends.
	GetByIDForShare(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail looks up a normalized email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// SetVerified marks the user verified. Repeating it is harmless.
	SetVerified(ctx context.Context, id ulid.ULID) error

	// SetActive sets the active flag.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error

	// UpdatePassword replaces the stored hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// ListByRole returns users with role, oldest first.
	ListByRole(ctx context.Context, role Role) ([]*User, error)

	// ListStudents returns the students owned by teacherID, oldest first.
	ListStudents(ctx context.Context, teacherID ulid.ULID) ([]*User, error)
}
