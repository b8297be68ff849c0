package repository

import (
	"context"

	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ItemRepository provides CRUD access for items.
type ItemRepository interface {
	// Create inserts a new item.
	Create(ctx context.Context, it *model.Item) error
	// GetByID loads an item by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// List returns items newest-first with limit/offset paging.
	List(ctx context.Context, limit, offset int) ([]model.Item, error)
	// Update applies the non-nil fields and returns the refreshed item.
	Update(ctx context.Context, id uuid.UUID, upd model.ItemUpdate) (*model.Item, error)
	// Delete removes an item; absent items return ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}
