package repository

import (
	"context"

	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
)

// RefreshTokenRepository is the ledger of currently-valid refresh tokens.
type RefreshTokenRepository interface {
	// Create inserts a ledger row for the raw token value.
	Create(ctx context.Context, t *model.RefreshToken) error
	// GetByToken returns the row for the raw value only while it is unexpired;
	// expired-but-unswept rows are treated as absent.
	GetByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// Delete removes the row for the raw value; absent rows are a no-op.
	Delete(ctx context.Context, token string) error
	// DeleteByUser removes every row owned by the user.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired removes all rows past expiry and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
