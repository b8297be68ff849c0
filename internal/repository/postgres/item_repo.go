package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/and161185/secure-api/internal/errs"
	"github.com/and161185/secure-api/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const itemColumns = "id, name, description, created_by, created_at, updated_at"

// Create inserts a new item row.
func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	const q = `
INSERT INTO items (id, name, description, created_by)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, it.ID, it.Name, it.Description, it.CreatedBy)
	return err
}

// GetByID selects an item by ID.
func (r *ItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	q := fmt.Sprintf("SELECT %s FROM items WHERE id=$1", itemColumns)
	row := r.db.Pool.QueryRow(ctx, q, id)
	var it model.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// List returns items newest-first with limit/offset paging.
func (r *ItemRepo) List(ctx context.Context, limit, offset int) ([]model.Item, error) {
	q := fmt.Sprintf("SELECT %s FROM items ORDER BY created_at DESC LIMIT $1 OFFSET $2", itemColumns)
	rows, err := r.db.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Item, 0, limit)
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of upd and returns the refreshed row.
func (r *ItemRepo) Update(ctx context.Context, id uuid.UUID, upd model.ItemUpdate) (*model.Item, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if upd.Name != nil {
		args = append(args, *upd.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	if upd.Description != nil {
		args = append(args, *upd.Description)
		sets = append(sets, fmt.Sprintf("description=$%d", len(args)))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at=now()")

	args = append(args, id)
	q := fmt.Sprintf("UPDATE items SET %s WHERE id=$%d RETURNING %s",
		strings.Join(sets, ", "), len(args), itemColumns)

	row := r.db.Pool.QueryRow(ctx, q, args...)
	var it model.Item
	if err := row.Scan(&it.ID, &it.Name, &it.Description, &it.CreatedBy, &it.CreatedAt, &it.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// Delete removes an item row.
func (r *ItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM items WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
