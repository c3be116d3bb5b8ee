package model

import "time"

// Category represents a row in the `categories` table. Category names are
// unique; creation and mutation are restricted to ADMIN users.
type Category struct {
	ID        uint64    // categories.id
	Name      string    // categories.name (unique)
	CreatedAt time.Time // categories.created_at
	UpdatedAt time.Time // categories.updated_at
}
