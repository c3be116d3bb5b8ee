// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer that move them.
package queue

// UserRegisteredEvent is published after a successful registration. Downstream
// consumers use it for audit logging and welcome notifications without
// querying the primary database.
type UserRegisteredEvent struct {
	UserID       uint64 `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	RegisteredAt string `json:"registered_at"`
}

// OrderLine is one purchased position inside an OrderPlacedEvent.
type OrderLine struct {
	ProductID  uint64 `json:"product_id"`
	Name       string `json:"name"`
	Qty        uint32 `json:"qty"`
	PriceCents uint32 `json:"price_cents"`
}

// OrderPlacedEvent is published when a cart checkout commits.
type OrderPlacedEvent struct {
	UserID           uint64      `json:"user_id"`
	Lines            []OrderLine `json:"lines"`
	TotalAmountCents uint64      `json:"total_amount_cents"`
	PlacedAt         string      `json:"placed_at"`
}
