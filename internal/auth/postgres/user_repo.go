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

const userColumns = `id, email, password_hash, role, teacher_id, first_name, last_name,
	age, gender, organization, profile_image, is_active, is_verified, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool poolIface
}

// NewUserRepository creates a UserRepository. pool is usually a *pgxpool.Pool.
func NewUserRepository(pool poolIface) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user. The unique email index and the hierarchy CHECK are
// the last line of defence behind auth.Directory; their violations map to
// auth.ErrDuplicateEmail and auth.ErrInvalidHierarchy.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	var age *int32
	if u.Profile.Age != nil {
		a := int32(*u.Profile.Age) //nolint:gosec // bounded by ValidateProfile
		age = &a
	}

	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		u.ID.String(),
		u.Email,
		u.PasswordHash,
		string(u.Role),
		ulidToStringPtr(u.TeacherID),
		u.Profile.FirstName,
		u.Profile.LastName,
		age,
		nullString(u.Profile.Gender),
		nullString(u.Profile.Organization),
		nullString(u.Profile.ProfileImage),
		u.IsActive,
		u.IsVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err == nil {
		return nil
	}

	if constraint, ok := store.IsUniqueViolation(err); ok {
		return oops.Code("USER_DUPLICATE_EMAIL").With("constraint", constraint).Wrap(auth.ErrDuplicateEmail)
	}
	if constraint, ok := store.IsCheckViolation(err); ok && constraint == "users_role_hierarchy" {
		return oops.Code("USER_INVALID_HIERARCHY").With("constraint", constraint).Wrap(auth.ErrInvalidHierarchy)
	}
	if constraint, ok := store.IsForeignKeyViolation(err); ok {
		return oops.Code("USER_INVALID_HIERARCHY").
			With("constraint", constraint).
			With("teacher_id", derefString(ulidToStringPtr(u.TeacherID))).
			Wrap(auth.ErrInvalidHierarchy)
	}
	return dbError(err, "USER_CREATE_FAILED", "operation", "insert user", "user_id", u.ID.String())
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return r.getOne(row, "user_id", id.String())
}

// GetByIDForShare retrieves a user under a shared row lock.
func (r *UserRepository) GetByIDForShare(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR SHARE`, id.String())
	return r.getOne(row, "user_id", id.String())
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return r.getOne(row, "lookup", "email")
}

func (r *UserRepository) getOne(row pgx.Row, key, value string) (*auth.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// SetVerified marks a user verified.
func (r *UserRepository) SetVerified(ctx context.Context, id ulid.ULID) error {
	return r.update(ctx, "set verified", id,
		`UPDATE users SET is_verified = TRUE, updated_at = now() WHERE id = $1`, id.String())
}

// SetActive sets the active flag.
func (r *UserRepository) SetActive(ctx context.Context, id ulid.ULID, active bool) error {
	return r.update(ctx, "set active", id,
		`UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id.String(), active)
}

// UpdatePassword replaces the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return r.update(ctx, "update password", id,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id.String(), passwordHash)
}

func (r *UserRepository) update(ctx context.Context, operation string, id ulid.ULID, sql string, args ...any) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, sql, args...)
	if err != nil {
		return dbError(err, "USER_UPDATE_FAILED", "operation", operation, "user_id", id.String())
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("user_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// ListByRole returns users with role, oldest first.
func (r *UserRepository) ListByRole(ctx context.Context, role auth.Role) ([]*auth.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at, id`, string(role))
	if err != nil {
		return nil, dbError(err, "USER_LIST_FAILED", "operation", "list users by role", "role", string(role))
	}
	return collectUsers(rows)
}

// ListStudents returns the students of teacherID, oldest first.
func (r *UserRepository) ListStudents(ctx context.Context, teacherID ulid.ULID) ([]*auth.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE teacher_id = $1 AND role = 'student' ORDER BY created_at, id`,
		teacherID.String())
	if err != nil {
		return nil, dbError(err, "USER_LIST_FAILED", "operation", "list students", "teacher_id", teacherID.String())
	}
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*auth.User, error) {
	defer rows.Close()
	var users []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "USER_LIST_FAILED", "operation", "iterate users")
	}
	return users, nil
}

// scanUser scans one row in userColumns order. pgx.ErrNoRows is returned
// unwrapped so callers can attach lookup context.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		role         string
		teacherIDStr *string
		age          *int32
		gender       *string
		organization *string
		profileImage *string
		createdAt    time.Time
		updatedAt    time.Time
		u            auth.User
	)

	err := row.Scan(
		&idStr, &u.Email, &u.PasswordHash, &role, &teacherIDStr,
		&u.Profile.FirstName, &u.Profile.LastName,
		&age, &gender, &organization, &profileImage,
		&u.IsActive, &u.IsVerified, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, dbError(err, "USER_SCAN_FAILED", "operation", "scan user")
	}

	if u.ID, err = parseULID(idStr, "user_id"); err != nil {
		return nil, err
	}
	if u.TeacherID, err = parseOptionalULID(teacherIDStr, "teacher_id"); err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	if age != nil {
		a := int(*age)
		u.Profile.Age = &a
	}
	u.Profile.Gender = derefString(gender)
	u.Profile.Organization = derefString(organization)
	u.Profile.ProfileImage = derefString(profileImage)
	u.CreatedAt = createdAt
	u.UpdatedAt = updatedAt
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
