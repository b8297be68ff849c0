// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides credential-store access for users.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Update applies the non-nil fields and returns the refreshed user.
	Update(ctx context.Context, id uuid.UUID, upd model.UserUpdate) (*model.User, error)
	// ExistsWithRole reports whether any user has the given role.
	ExistsWithRole(ctx context.Context, role model.Role) (bool, error)
}
