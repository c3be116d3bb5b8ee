package model

import "time"

// Store represents a row in the `stores` table. Each VENDOR owns at most
// one store; the owner_id column carries a unique constraint.
//
// Fields:
//  ID          – primary key identifier of the store.
//  OwnerID     – foreign key into users (the owning vendor).
//  Name        – display name of the store.
//  Description – free-form description shown on the storefront.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Store struct {
	ID          uint64    // stores.id
	OwnerID     uint64    // stores.owner_id
	Name        string    // stores.name
	Description string    // stores.description
	CreatedAt   time.Time // stores.created_at
	UpdatedAt   time.Time // stores.updated_at
}
