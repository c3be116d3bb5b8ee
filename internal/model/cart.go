package model

import "time"

// CartItem represents a row in the `cart_items` table. A user holds at most
// one row per product (UNIQUE(user_id, product_id)); adding an existing
// product adjusts the quantity instead.
type CartItem struct {
	ID        uint64    // cart_items.id
	UserID    uint64    // cart_items.user_id
	ProductID uint64    // cart_items.product_id
	Qty       uint32    // cart_items.qty
	CreatedAt time.Time // cart_items.created_at
	UpdatedAt time.Time // cart_items.updated_at
}
