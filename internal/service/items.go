package service

import (
	"context"
	"errors"

	"github.com/and161185/secure-api/internal/model"
	"github.com/and161185/secure-api/internal/repository"
	"github.com/gofrs/uuid/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ItemService defines CRUD operations over items.
type ItemService interface {
	// List returns items newest-first; limit/offset are clamped to sane bounds.
	List(ctx context.Context, limit, offset int) ([]model.Item, error)
	// Get returns a single item by ID.
	Get(ctx context.Context, id uuid.UUID) (*model.Item, error)
	// Create inserts a new item owned by createdBy.
	Create(ctx context.Context, name, description string, createdBy uuid.UUID) (*model.Item, error)
	// Update applies a partial item update.
	Update(ctx context.Context, id uuid.UUID, upd model.ItemUpdate) (*model.Item, error)
	// Delete removes an item.
	Delete(ctx context.Context, id uuid.UUID) error
}

type ItemServiceImpl struct {
	repo repository.ItemRepository
}

// NewItemService constructs ItemService.
func NewItemService(repo repository.ItemRepository) *ItemServiceImpl {
	return &ItemServiceImpl{repo: repo}
}

// ClampPage normalizes limit/offset to the bounds List enforces, so callers
// can report the values that were actually applied.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns items with clamped paging.
func (s *ItemServiceImpl) List(ctx context.Context, limit, offset int) ([]model.Item, error) {
	limit, offset = ClampPage(limit, offset)
	return s.repo.List(ctx, limit, offset)
}

// Get returns a single item by ID.
func (s *ItemServiceImpl) Get(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates input and inserts a new item.
func (s *ItemServiceImpl) Create(ctx context.Context, name, description string, createdBy uuid.UUID) (*model.Item, error) {
	if name == "" {
		return nil, errors.New("empty item name")
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	it := &model.Item{ID: id, Name: name, Description: description, CreatedBy: createdBy}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// Update applies a partial item update.
func (s *ItemServiceImpl) Update(ctx context.Context, id uuid.UUID, upd model.ItemUpdate) (*model.Item, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, errors.New("empty item name")
	}
	return s.repo.Update(ctx, id, upd)
}

// Delete removes an item.
func (s *ItemServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
