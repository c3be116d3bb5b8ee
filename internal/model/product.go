package model

import "time"

// Product represents a row in the `products` table. A product belongs to
// exactly one store and one category. Prices are stored in cents to avoid
// floating point rounding; StockQty never goes below zero.
//
// Fields:
//  ID         – primary key identifier of the product.
//  StoreID    – foreign key into stores.
//  CategoryID – foreign key into categories.
//  Name       – display name of the product.
//  PriceCents – unit price in cents.
//  StockQty   – units available for sale.
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type Product struct {
	ID         uint64    // products.id
	StoreID    uint64    // products.store_id
	CategoryID uint64    // products.category_id
	Name       string    // products.name
	PriceCents uint32    // products.price_cents
	StockQty   uint32    // products.stock_qty
	CreatedAt  time.Time // products.created_at
	UpdatedAt  time.Time // products.updated_at
}
