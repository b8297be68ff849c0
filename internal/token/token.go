// Package token issues and verifies signed session tokens in two
// independent signing domains (access and refresh).
package token

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Domain selects a signing key namespace. Tokens issued in one domain never
// verify in the other.
type Domain string

const (
	DomainAccess  Domain = "access"
	DomainRefresh Domain = "refresh"
)

// Verification failures. Expired and BadSignature stay distinct so callers
// can report them as separate conditions.
var (
	ErrMalformed    = errors.New("token malformed")
	ErrBadSignature = errors.New("token signature invalid")
	ErrExpired      = errors.New("token expired")
)

type domainKey struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies HS256 JWTs carrying {sub, iat, exp}.
type Codec struct {
	domains map[Domain]domainKey
}

// New constructs a Codec with per-domain secrets and lifetimes.
func New(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{domains: map[Domain]domainKey{
		DomainAccess:  {secret: accessSecret, ttl: accessTTL},
		DomainRefresh: {secret: refreshSecret, ttl: refreshTTL},
	}}
}

// TTL returns the configured lifetime for the domain.
func (c *Codec) TTL(d Domain) time.Duration { return c.domains[d].ttl }

// Issue creates a signed token for subject with the domain's lifetime and
// returns it together with its absolute expiry.
func (c *Codec) Issue(d Domain, subject uuid.UUID) (string, time.Time, error) {
	dk, ok := c.domains[d]
	if !ok {
		return "", time.Time{}, errors.New("unknown signing domain")
	}
	// jti keeps two tokens for the same subject distinct even within one
	// second, so a raw refresh value never collides in the ledger.
	jti, err := uuid.NewV4()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(dk.ttl)
	claims := jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(dk.secret)
	return signed, exp, err
}

// Verify checks structure, signature and embedded expiry under the domain's
// secret and returns the subject user ID.
func (c *Codec) Verify(d Domain, tokenString string) (uuid.UUID, error) {
	dk, ok := c.domains[d]
	if !ok {
		return uuid.Nil, errors.New("unknown signing domain")
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return dk.secret, nil
	})
	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return uuid.Nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return uuid.Nil, ErrBadSignature
	default:
		return uuid.Nil, ErrMalformed
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformed
	}
	return id, nil
}
