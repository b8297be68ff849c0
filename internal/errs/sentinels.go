// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUsernameTaken indicates the username is already taken.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials indicates failed authentication; wrong email and
	// wrong password are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidRefreshToken indicates a malformed, forged, expired or revoked
	// refresh token; the sub-cause is not exposed to the caller.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// ErrUserNotFound indicates a verified token whose subject no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateToken indicates a refresh token value collision in the ledger.
	// Cryptographically negligible, treated as retryable.
	ErrDuplicateToken = errors.New("duplicate refresh token")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")
)
