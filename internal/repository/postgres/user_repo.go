package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, password_hash, role)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.Role)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "email", email)
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepo) getBy(ctx context.Context, column string, value any) (*model.User, error) {
	q := fmt.Sprintf("SELECT %s FROM users WHERE %s=$1", userColumns, column)
	row := r.db.Pool.QueryRow(ctx, q, value)
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Update applies the non-nil fields of upd and returns the refreshed row.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.PasswordHash != nil {
		add("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at=now()")

	args = append(args, id)
	q := fmt.Sprintf("UPDATE users SET %s WHERE id=$%d RETURNING %s",
		strings.Join(sets, ", "), len(args), userColumns)

	row := r.db.Pool.QueryRow(ctx, q, args...)
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, errs.ErrAlreadyExists
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ExistsWithRole reports whether any user has the given role.
func (r *UserRepo) ExistsWithRole(ctx context.Context, role model.Role) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE role=$1)`
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, q, role).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
