// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is a user's authorization role. Exactly two values exist.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User represents an account. PasswordHash is never serialized or logged.
type User struct {
	ID           uuid.UUID // PK
	Username     string    // unique
	Email        string    // unique
	PasswordHash string    // bcrypt
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the caller-visible projection of a User.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public strips the password hash for responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserUpdate is a partial update; nil fields are left untouched.
// PasswordHash is set by the service layer after re-hashing.
type UserUpdate struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *Role
}

// RefreshToken is a ledger row binding a raw bearer value to its owner.
// The raw value is unique; a row is live only while ExpiresAt is in the future.
type RefreshToken struct {
	Token     string // raw bearer value, unique
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Tokens collects an issued access/refresh token pair
// (refresh is empty on renewal).
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// Item is a plain business entity managed by admins.
type Item struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemUpdate is a partial item update; nil fields are left untouched.
type ItemUpdate struct {
	Name        *string
	Description *string
}
