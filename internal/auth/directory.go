// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Directory owns user records and the teacher/student hierarchy.
type Directory struct {
	tx     Transactor
	users  UserRepository
	logger *slog.Logger
	clock  func() time.Time
}

// NewDirectory creates a Directory.
func NewDirectory(tx Transactor, users UserRepository, opts ...Option) (*Directory, error) {
	if tx == nil {
		return nil, oops.Errorf("transactor is required")
	}
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	o := buildOptions(opts)
	return &Directory{tx: tx, users: users, logger: o.logger, clock: o.clock}, nil
}

// CreateUser validates p and inserts the user. For a student the teacher row
// is read with a shared lock in the same transaction as the insert, so the
// teacher cannot disappear or be swapped between check and write.
func (d *Directory) CreateUser(ctx context.Context, p NewUserParams) (*User, error) {
	email := NormalizeEmail(p.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateHierarchy(p.Role, p.TeacherID); err != nil {
		return nil, err
	}
	if err := ValidateProfile(p.Profile); err != nil {
		return nil, err
	}
	if p.PasswordHash == "" {
		return nil, invalidInput("password_hash", "password hash cannot be empty")
	}

	now := d.clock()
	user := &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		TeacherID:    p.TeacherID,
		Profile:      p.Profile,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := d.tx.InTransaction(ctx, func(ctx context.Context) error {
		if user.Role == RoleStudent {
			if err := d.checkTeacher(ctx, *user.TeacherID); err != nil {
				return err
			}
		}
		return d.users.Create(ctx, user)
	})
	if err != nil {
		return nil, oops.With("operation", "create user").With("role", string(user.Role)).Wrap(err)
	}

	d.logger.InfoContext(ctx, "user created",
		"user_id", user.ID.String(),
		"role", string(user.Role))
	return user, nil
}

func (d *Directory) checkTeacher(ctx context.Context, teacherID ulid.ULID) error {
	teacher, err := d.users.GetByIDForShare(ctx, teacherID)
	if errors.Is(err, ErrNotFound) {
		return invalidHierarchy("teacher %s does not exist", teacherID)
	}
	if err != nil {
		return err
	}
	if teacher.Role != RoleTeacher {
		return invalidHierarchy("user %s is not a teacher", teacherID)
	}
	return nil
}

// FindByEmail looks a user up by email, normalizing it first. An email that
// is not valid UTF-8 cannot belong to anyone and is not sent to storage.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	if !utf8.ValidString(email) {
		return nil, oops.Code("USER_NOT_FOUND").With("lookup", "email").Wrap(ErrNotFound)
	}
	user, err := d.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, oops.With("operation", "find user by email").Wrap(err)
	}
	return user, nil
}

// FindByID looks a user up by ID.
func (d *Directory) FindByID(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, oops.With("operation", "find user by id").Wrap(err)
	}
	return user, nil
}

// SetVerified marks a user verified.
func (d *Directory) SetVerified(ctx context.Context, id ulid.ULID) error {
	if err := d.users.SetVerified(ctx, id); err != nil {
		return oops.With("operation", "set verified").With("user_id", id.String()).Wrap(err)
	}
	return nil
}

// SetActive activates or deactivates a user. Inactive users cannot log in.
func (d *Directory) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	if err := d.users.SetActive(ctx, id, active); err != nil {
		return oops.With("operation", "set active").With("user_id", id.String()).Wrap(err)
	}
	d.logger.InfoContext(ctx, "user active flag changed", "user_id", id.String(), "active", active)
	return nil
}

// ListTeachers returns every teacher.
func (d *Directory) ListTeachers(ctx context.Context) ([]*User, error) {
	users, err := d.users.ListByRole(ctx, RoleTeacher)
	if err != nil {
		return nil, oops.With("operation", "list teachers").Wrap(err)
	}
	return users, nil
}

// ListStudents returns the students of teacherID. It fails with ErrNotFound
// when the user does not exist and ErrInvalidHierarchy when it is not a teacher.
func (d *Directory) ListStudents(ctx context.Context, teacherID ulid.ULID) ([]*User, error) {
	teacher, err := d.users.GetByID(ctx, teacherID)
	if err != nil {
		return nil, oops.With("operation", "list students").With("teacher_id", teacherID.String()).Wrap(err)
	}
	if teacher.Role != RoleTeacher {
		return nil, invalidHierarchy("user %s is not a teacher", teacherID)
	}
	students, err := d.users.ListStudents(ctx, teacherID)
	if err != nil {
		return nil, oops.With("operation", "list students").With("teacher_id", teacherID.String()).Wrap(err)
	}
	return students, nil
}
