// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Zyric Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zyric/identity/internal/auth"
	"github.com/zyric/identity/pkg/errutil"
)

var userColumnNames = []string{
	"id", "email", "password_hash", "role", "teacher_id", "first_name", "last_name",
	"age", "gender", "organization", "profile_image", "is_active", "is_verified", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleStudent() *auth.User {
	teacherID := ulid.Make()
	age := 14
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	return &auth.User{
		ID:           ulid.Make(),
		Email:        "pupil@school.example",
		PasswordHash: "$argon2id$hash",
		Role:         auth.RoleStudent,
		TeacherID:    &teacherID,
		Profile:      auth.Profile{FirstName: "Ada", LastName: "Byron", Age: &age},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Create(t *testing.T) {
	u := sampleStudent()
	age := int32(14)

	tests := []struct {
		name     string
		execErr  error
		wantCode string
		wantIs   error
	}{
		{name: "inserts"},
		{
			name:     "duplicate email",
			execErr:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"},
			wantCode: "USER_DUPLICATE_EMAIL",
			wantIs:   auth.ErrDuplicateEmail,
		},
		{
			name:     "hierarchy check",
			execErr:  &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "users_role_hierarchy"},
			wantCode: "USER_INVALID_HIERARCHY",
			wantIs:   auth.ErrInvalidHierarchy,
		},
		{
			name:     "missing teacher",
			execErr:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "users_teacher_id_fkey"},
			wantCode: "USER_INVALID_HIERARCHY",
			wantIs:   auth.ErrInvalidHierarchy,
		},
		{
			name:     "statement timeout",
			execErr:  &pgconn.PgError{Code: pgerrcode.QueryCanceled},
			wantCode: "STORAGE_UNAVAILABLE",
			wantIs:   auth.ErrUnavailable,
		},
		{
			name:     "other failure",
			execErr:  errors.New("disk full"),
			wantCode: "USER_CREATE_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			exp := mock.ExpectExec(`INSERT INTO users`).
				WithArgs(u.ID.String(), u.Email, u.PasswordHash, "student", ulidToStringPtr(u.TeacherID),
					"Ada", "Byron", &age, nilString(), nilString(), nilString(), true, false, u.CreatedAt, u.UpdatedAt)
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(pgxmock.NewResult("INSERT", 1))
			}

			err := NewUserRepository(mock).Create(context.Background(), u)
			if tt.wantCode == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				}
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func nilString() *string { return nil }

func userRow(u *auth.User) *pgxmock.Rows {
	var teacher *string
	if u.TeacherID != nil {
		s := u.TeacherID.String()
		teacher = &s
	}
	var age *int32
	if u.Profile.Age != nil {
		a := int32(*u.Profile.Age)
		age = &a
	}
	org := "Northside High"
	return pgxmock.NewRows(userColumnNames).AddRow(
		u.ID.String(), u.Email, u.PasswordHash, string(u.Role), teacher,
		u.Profile.FirstName, u.Profile.LastName, age, nilString(), &org, nilString(),
		u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_GetByID(t *testing.T) {
	u := sampleStudent()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM users WHERE id = \$1$`).WithArgs(u.ID.String()).WillReturnRows(userRow(u))

		got, err := NewUserRepository(mock).GetByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, auth.RoleStudent, got.Role)
		require.NotNil(t, got.TeacherID)
		assert.Equal(t, *u.TeacherID, *got.TeacherID)
		require.NotNil(t, got.Profile.Age)
		assert.Equal(t, 14, *got.Profile.Age)
		assert.Equal(t, "Northside High", got.Profile.Organization)
		assert.Empty(t, got.Profile.Gender)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM users WHERE id`).WithArgs(u.ID.String()).WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).GetByID(context.Background(), u.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
	})

	t.Run("corrupt id", func(t *testing.T) {
		mock := newMock(t)
		bad := *u
		rows := pgxmock.NewRows(userColumnNames).AddRow(
			"not-a-ulid", bad.Email, bad.PasswordHash, "teacher", nilString(),
			"A", "B", (*int32)(nil), nilString(), nilString(), nilString(),
			true, false, bad.CreatedAt, bad.UpdatedAt)
		mock.ExpectQuery(`FROM users WHERE id`).WithArgs(u.ID.String()).WillReturnRows(rows)

		_, err := NewUserRepository(mock).GetByID(context.Background(), u.ID)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "DB_INVALID_ID")
	})
}

func TestUserRepository_GetByIDForShareLocks(t *testing.T) {
	u := sampleStudent()
	mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1 FOR SHARE`).WithArgs(u.ID.String()).WillReturnRows(userRow(u))

	got, err := NewUserRepository(mock).GetByIDForShare(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	u := sampleStudent()
	mock := newMock(t)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).WithArgs(u.Email).WillReturnRows(userRow(u))

	got, err := NewUserRepository(mock).GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Updates(t *testing.T) {
	id := ulid.Make()

	tests := []struct {
		name  string
		query string
		args  []any
		run   func(r *UserRepository) error
	}{
		{
			name:  "set verified",
			query: `UPDATE users SET is_verified = TRUE`,
			args:  []any{id.String()},
			run:   func(r *UserRepository) error { return r.SetVerified(context.Background(), id) },
		},
		{
			name:  "set active",
			query: `UPDATE users SET is_active = \$2`,
			args:  []any{id.String(), false},
			run:   func(r *UserRepository) error { return r.SetActive(context.Background(), id, false) },
		},
		{
			name:  "update password",
			query: `UPDATE users SET password_hash = \$2`,
			args:  []any{id.String(), "$argon2id$new"},
			run:   func(r *UserRepository) error { return r.UpdatePassword(context.Background(), id, "$argon2id$new") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			require.NoError(t, tt.run(NewUserRepository(mock)))
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+" missing user", func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			err := tt.run(NewUserRepository(mock))
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrNotFound)
		})

		t.Run(tt.name+" timeout", func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnError(context.DeadlineExceeded)
			err := tt.run(NewUserRepository(mock))
			require.Error(t, err)
			assert.True(t, auth.IsRetryable(err))
		})
	}
}

func TestUserRepository_Lists(t *testing.T) {
	u := sampleStudent()

	t.Run("by role", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE role = \$1 ORDER BY created_at, id`).WithArgs("student").WillReturnRows(userRow(u))

		got, err := NewUserRepository(mock).ListByRole(context.Background(), auth.RoleStudent)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, u.ID, got[0].ID)
	})

	t.Run("students", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE teacher_id = \$1 AND role = 'student'`).
			WithArgs(u.TeacherID.String()).
			WillReturnRows(pgxmock.NewRows(userColumnNames))

		got, err := NewUserRepository(mock).ListStudents(context.Background(), *u.TeacherID)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE role`).WillReturnError(errors.New("boom"))

		_, err := NewUserRepository(mock).ListByRole(context.Background(), auth.RoleTeacher)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_LIST_FAILED")
	})
}

var tokenColumnNames = []string{"id", "user_id", "token_hash", "expires_at", "used", "used_at", "created_at"}

func TestPasswordResetRepository_Create(t *testing.T) {
	tok := &auth.PasswordResetToken{
		ID:        ulid.Make(),
		UserID:    ulid.Make(),
		TokenHash: auth.HashResetToken("raw"),
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}

	t.Run("inserts", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO password_reset_tokens`).
			WithArgs(tok.ID.String(), tok.UserID.String(), tok.TokenHash, tok.ExpiresAt, tok.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, NewPasswordResetRepository(mock).Create(context.Background(), tok))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO password_reset_tokens`).
			WithArgs(tok.ID.String(), tok.UserID.String(), tok.TokenHash, tok.ExpiresAt, tok.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})
		err := NewPasswordResetRepository(mock).Create(context.Background(), tok)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestPasswordResetRepository_GetByTokenHashForUpdate(t *testing.T) {
	id, userID := ulid.Make(), ulid.Make()
	expires := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	usedAt := expires.Add(-time.Minute)

	t.Run("found and locked", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`WHERE token_hash = \$1\s+FOR UPDATE`).
			WithArgs("digest").
			WillReturnRows(pgxmock.NewRows(tokenColumnNames).
				AddRow(id.String(), userID.String(), "digest", expires, true, &usedAt, expires.Add(-time.Hour)))

		got, err := NewPasswordResetRepository(mock).GetByTokenHashForUpdate(context.Background(), "digest")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, userID, got.UserID)
		assert.True(t, got.Used)
		require.NotNil(t, got.UsedAt)
		assert.Equal(t, usedAt, *got.UsedAt)
	})

	t.Run("unknown", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM password_reset_tokens`).WithArgs("digest").WillReturnError(pgx.ErrNoRows)
		_, err := NewPasswordResetRepository(mock).GetByTokenHashForUpdate(context.Background(), "digest")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorCode(t, err, "RESET_TOKEN_NOT_FOUND")
	})
}

func TestPasswordResetRepository_MarkUsed(t *testing.T) {
	id := ulid.Make()
	at := time.Now()

	t.Run("claims", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`SET used = TRUE, used_at = \$2\s+WHERE id = \$1 AND used = FALSE`).
			WithArgs(id.String(), at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, NewPasswordResetRepository(mock).MarkUsed(context.Background(), id, at))
	})

	t.Run("lost the race", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`SET used = TRUE`).WithArgs(id.String(), at).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		err := NewPasswordResetRepository(mock).MarkUsed(context.Background(), id, at)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrTokenAlreadyUsed)
		errutil.AssertErrorCode(t, err, "RESET_TOKEN_USED")
		assert.False(t, auth.IsRetryable(err))
	})
}

func TestPasswordResetRepository_Deletes(t *testing.T) {
	userID := ulid.Make()
	before := time.Now()

	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM password_reset_tokens WHERE user_id = \$1 AND used = FALSE`).
		WithArgs(userID.String()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM password_reset_tokens WHERE expires_at < \$1`).
		WithArgs(before).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	repo := NewPasswordResetRepository(mock)
	n, err := repo.DeleteUnused(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteExpired(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
