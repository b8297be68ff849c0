// Package service contains application services for authentication and items.
package service

import (
	"context"
	"errors"

	pkgcrypto "github.com/and161185/secure-api/internal/crypto"
	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/limiter"
	"github.com/and161185/secure-api/internal/model"
	"github.com/and161185/secure-api/internal/repository"
	"github.com/and161185/secure-api/internal/token"
	"github.com/gofrs/uuid/v5"
)

// UserChanges is a partial profile update accepted from callers.
// Password is plaintext and re-hashed before storage.
type UserChanges struct {
	Username *string
	Email    *string
	Password *string
	Role     *model.Role
}

// AuthService defines the session lifecycle: registration, login, access
// token renewal and revocation.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, email, password string, role model.Role) (*model.User, error)
	// LoginWithIP applies rate-limiting, authenticates and issues a token pair.
	LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error)
	// Refresh issues a new access token against a valid, unrevoked refresh token.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Logout revokes a refresh token; absent or forged values are a no-op.
	Logout(ctx context.Context, refreshToken string) error
	// LogoutAll revokes every refresh token owned by the user.
	LogoutAll(ctx context.Context, userID uuid.UUID) error
	// Authenticate resolves a bearer access token to its user.
	Authenticate(ctx context.Context, accessToken string) (*model.User, error)
	// UpdateUser applies a partial profile update, re-hashing any new password.
	UpdateUser(ctx context.Context, id uuid.UUID, ch UserChanges) (*model.User, error)
	// SweepExpiredTokens bulk-deletes expired ledger rows; not scheduled here.
	SweepExpiredTokens(ctx context.Context) (int64, error)
}

type AuthServiceImpl struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	codec      *token.Codec
	bcryptCost int
	lim        limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, tokens repository.RefreshTokenRepository, codec *token.Codec, bcryptCost int, lim limiter.Limiter) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, tokens: tokens, codec: codec, bcryptCost: bcryptCost, lim: lim}
}

// Register creates a new user. Email and username existence are pre-checked
// for friendly errors; the store's unique constraints remain the backstop.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string, role model.Role) (*model.User, error) {
	if username == "" || email == "" || password == "" {
		return nil, errors.New("empty username/email/password")
	}
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, errors.New("unknown role")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, errs.ErrEmailTaken
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, errs.ErrUsernameTaken
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	hash, err := pkgcrypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		ID:           uid,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginWithIP authenticates with rate limiting by (email, ip). A missing user
// and a wrong password both map to ErrInvalidCredentials.
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, email, password, ip string) (model.Tokens, *model.User, error) {
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	if !allowed {
		return model.Tokens{}, nil, errs.ErrRateLimited
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword(u.PasswordHash, password) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Tokens{}, nil, errs.ErrRateLimited
		}
		// missing user and wrong password are indistinguishable
		return model.Tokens{}, nil, errs.ErrInvalidCredentials
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	access, exp, err := s.codec.Issue(token.DomainAccess, u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}
	refresh, refreshExp, err := s.codec.Issue(token.DomainRefresh, u.ID)
	if err != nil {
		return model.Tokens{}, nil, err
	}

	rec := &model.RefreshToken{Token: refresh, UserID: u.ID, ExpiresAt: refreshExp}
	if err := s.tokens.Create(ctx, rec); err != nil {
		return model.Tokens{}, nil, err
	}

	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, u, nil
}

// Refresh verifies the token signature and its ledger record, then issues a
// fresh access token only. The refresh token is not rotated: the presented
// value and its ledger row remain valid until logout or expiry.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	subject, err := s.codec.Verify(token.DomainRefresh, refreshToken)
	if err != nil {
		return model.Tokens{}, errs.ErrInvalidRefreshToken
	}

	// The ledger is what makes logout effective: a signature-valid token
	// whose row was deleted is rejected here.
	if _, err := s.tokens.GetByToken(ctx, refreshToken); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.ErrInvalidRefreshToken
		}
		return model.Tokens{}, err
	}

	u, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Tokens{}, errs.ErrUserNotFound
		}
		return model.Tokens{}, err
	}

	access, exp, err := s.codec.Issue(token.DomainAccess, u.ID)
	if err != nil {
		return model.Tokens{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, nil
}

// Logout deletes the ledger row for the token value. No signature check:
// deleting an absent or forged value is a no-op.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.tokens.Delete(ctx, refreshToken)
}

// LogoutAll revokes every refresh token owned by the user.
func (s *AuthServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	return s.tokens.DeleteByUser(ctx, userID)
}

// Authenticate verifies an access token and resolves its subject user.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	subject, err := s.codec.Verify(token.DomainAccess, accessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateUser applies a partial profile update; password changes are re-hashed.
func (s *AuthServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, ch UserChanges) (*model.User, error) {
	if ch.Role != nil && !ch.Role.Valid() {
		return nil, errors.New("unknown role")
	}
	upd := model.UserUpdate{Username: ch.Username, Email: ch.Email, Role: ch.Role}
	if ch.Password != nil {
		hash, err := pkgcrypto.HashPassword(*ch.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		upd.PasswordHash = &hash
	}
	return s.users.Update(ctx, id, upd)
}

// SweepExpiredTokens removes expired ledger rows and returns the count.
// Scheduling is the caller's concern.
func (s *AuthServiceImpl) SweepExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx)
}
