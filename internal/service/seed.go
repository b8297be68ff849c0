package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/and161185/secure-api/internal/crypto"
	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/model"
	"github.com/and161185/secure-api/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// Seeder ensures the bootstrap admin identity exists before traffic is served.
type Seeder struct {
	users      repository.UserRepository
	username   string
	email      string
	password   string
	bcryptCost int
}

// NewSeeder constructs a Seeder with the configured admin defaults.
func NewSeeder(users repository.UserRepository, username, email, password string, bcryptCost int) *Seeder {
	return &Seeder{users: users, username: username, email: email, password: password, bcryptCost: bcryptCost}
}

// EnsureAdmin creates the default admin if no admin exists. Idempotent: safe
// to run on every start; reports whether a user was created.
func (s *Seeder) EnsureAdmin(ctx context.Context) (bool, error) {
	exists, err := s.users.ExistsWithRole(ctx, model.RoleAdmin)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return false, err
	}
	hash, err := pkgcrypto.HashPassword(s.password, s.bcryptCost)
	if err != nil {
		return false, err
	}
	u := &model.User{
		ID:           uid,
		Username:     s.username,
		Email:        s.email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// a concurrent start won the race; the admin exists
		if errors.Is(err, errs.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
