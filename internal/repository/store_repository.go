// This file defines repository methods for vendor stores. A store is the
// selling surface a VENDOR owns; the schema enforces at most one store per
// vendor through a unique index on owner_id.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/nkazemy/marketplace-api/internal/model"
)

// ErrStoreNotFound is returned when a store cannot be found in the DB.
var ErrStoreNotFound = errors.New("store not found")

// StoreRepo encapsulates all database queries related to stores.
type StoreRepo struct {
	db *sql.DB
}

// NewStoreRepo constructs a StoreRepo with the provided DB handle.
func NewStoreRepo(db *sql.DB) *StoreRepo {
	return &StoreRepo{db: db}
}

// Create inserts a new store for the owner. A duplicate owner_id hits the
// unique index and is mapped to ErrConflict, preserving the one-store-per-
// vendor rule without relying on a prior read.
func (r *StoreRepo) Create(ctx context.Context, s *model.Store) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO stores (owner_id, name, description) VALUES (?,?,?)",
		s.OwnerID, s.Name, s.Description)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a store by its ID. Returns ErrStoreNotFound when absent.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (*model.Store, error) {
	var s model.Store
	err := r.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM stores WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByOwner fetches the store owned by the given vendor, if any.
func (r *StoreRepo) GetByOwner(ctx context.Context, ownerID uint64) (*model.Store, error) {
	var s model.Store
	err := r.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM stores WHERE owner_id=? LIMIT 1",
		ownerID).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all stores ordered by creation time.
func (r *StoreRepo) List(ctx context.Context) ([]model.Store, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, owner_id, name, description, created_at, updated_at FROM stores ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
