package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nkazemy/marketplace-api/internal/model"
)

// ErrCartItemNotFound is returned when a cart row cannot be found.
var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepo encapsulates database operations for cart_items.
type CartRepo struct {
	db *sql.DB
}

// NewCartRepo constructs a CartRepo given a DB handle.
func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{db: db}
}

// Upsert adds qty units of a product to the user's cart, folding into the
// existing row when one exists (UNIQUE(user_id, product_id)).
func (r *CartRepo) Upsert(ctx context.Context, userID, productID uint64, qty uint32) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO cart_items (user_id, product_id, qty) VALUES (?,?,?) "+
			"ON DUPLICATE KEY UPDATE qty = qty + VALUES(qty)",
		userID, productID, qty)
	return err
}

// ListByUser returns the user's cart rows.
func (r *CartRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, product_id, qty, created_at, updated_at FROM cart_items WHERE user_id=? ORDER BY created_at",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Qty, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Remove deletes one product from the user's cart. Scoping the delete by
// user_id means a user can never touch another user's rows.
func (r *CartRepo) Remove(ctx context.Context, userID, productID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id=? AND product_id=?", userID, productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// Clear empties the user's cart (checkout or explicit clear).
func (r *CartRepo) Clear(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=?", userID)
	return err
}

// CheckoutLine is one purchased position as captured at checkout time.
type CheckoutLine struct {
	ProductID  uint64
	Name       string
	Qty        uint32
	PriceCents uint32
}

// Checkout turns the user's cart into an order in a single transaction: it
// locks the cart rows, decrements stock per product (failing the whole
// checkout with ErrInsufficientStock when any product is short), empties the
// cart and returns the purchased lines with the total. Either everything
// commits or the cart and stock are left untouched.
func (r *CartRepo) Checkout(ctx context.Context, userID uint64) ([]CheckoutLine, uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		"SELECT ci.product_id, p.name, ci.qty, p.price_cents "+
			"FROM cart_items ci JOIN products p ON p.id = ci.product_id "+
			"WHERE ci.user_id=? FOR UPDATE", userID)
	if err != nil {
		return nil, 0, err
	}
	var lines []CheckoutLine
	for rows.Next() {
		var l CheckoutLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Qty, &l.PriceCents); err != nil {
			rows.Close()
			return nil, 0, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(lines) == 0 {
		return nil, 0, ErrCartItemNotFound
	}

	var total uint64
	for _, l := range lines {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock_qty = stock_qty - ? WHERE id=? AND stock_qty >= ?",
			l.Qty, l.ProductID, l.Qty)
		if err != nil {
			return nil, 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			return nil, 0, ErrInsufficientStock
		}
		total += uint64(l.Qty) * uint64(l.PriceCents)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id=?", userID); err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	return lines, total, nil
}
