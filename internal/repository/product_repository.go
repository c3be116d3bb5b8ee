package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nkazemy/marketplace-api/internal/model"
)

// ErrProductNotFound is returned when a product cannot be found in the DB.
var ErrProductNotFound = errors.New("product not found")

// ProductRepo encapsulates database operations for products.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo constructs a ProductRepo given a DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

const productColumns = "id, store_id, category_id, name, price_cents, stock_qty, created_at, updated_at"

// Create inserts a product into the owner's store.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO products (store_id, category_id, name, price_cents, stock_qty) VALUES (?,?,?,?,?)",
		p.StoreID, p.CategoryID, p.Name, p.PriceCents, p.StockQty)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.StoreID, &p.CategoryID, &p.Name, &p.PriceCents, &p.StockQty, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update overwrites the mutable fields of a product.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET category_id=?, name=?, price_cents=?, stock_qty=? WHERE id=?",
		p.CategoryID, p.Name, p.PriceCents, p.StockQty, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// List returns products, optionally filtered by category and/or store.
// A zero filter value means "any".
func (r *ProductRepo) List(ctx context.Context, categoryID, storeID uint64) ([]model.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE 1=1"
	args := []interface{}{}
	if categoryID != 0 {
		query += " AND category_id=?"
		args = append(args, categoryID)
	}
	if storeID != 0 {
		query += " AND store_id=?"
		args = append(args, storeID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.CategoryID, &p.Name, &p.PriceCents, &p.StockQty, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DecrementStock atomically takes qty units off a product's stock. The guard
// in the WHERE clause prevents the quantity from going negative under
// concurrent checkouts; zero affected rows means not enough stock (or no
// such product) and is reported as ErrInsufficientStock.
func (r *ProductRepo) DecrementStock(ctx context.Context, id uint64, qty uint32) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET stock_qty = stock_qty - ? WHERE id=? AND stock_qty >= ?",
		qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}
