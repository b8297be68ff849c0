package postgres

import (
	"context"
	"errors"

	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// RefreshTokenRepo implements RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepo struct{ db *DB }

// NewRefreshTokenRepo constructs a refresh token ledger repository.
func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo { return &RefreshTokenRepo{db: db} }

// Create inserts a ledger row for the raw token value.
func (r *RefreshTokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	const q = `
INSERT INTO refresh_tokens (token, user_id, expires_at)
VALUES ($1, $2, $3)`
	_, err := r.db.Pool.Exec(ctx, q, t.Token, t.UserID, t.ExpiresAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateToken
	}
	return err
}

// GetByToken selects an unexpired row by raw token value. Expired rows that
// have not been swept yet count as absent.
func (r *RefreshTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	const q = `
SELECT token, user_id, expires_at, created_at
FROM refresh_tokens WHERE token=$1 AND expires_at > now()`
	row := r.db.Pool.QueryRow(ctx, q, token)
	var t model.RefreshToken
	if err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes the row for the raw value; deleting an absent row is not an error.
func (r *RefreshTokenRepo) Delete(ctx context.Context, token string) error {
	const q = `DELETE FROM refresh_tokens WHERE token=$1`
	_, err := r.db.Pool.Exec(ctx, q, token)
	return err
}

// DeleteByUser removes every row owned by the user.
func (r *RefreshTokenRepo) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	const q = `DELETE FROM refresh_tokens WHERE user_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, userID)
	return err
}

// DeleteExpired removes all rows past expiry and returns the count.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires_at < now()`
	tag, err := r.db.Pool.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
