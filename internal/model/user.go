package model

import (
	"database/sql"
	"time"
)

// Role values stored in users.role. Registration may pick CUSTOMER or
// VENDOR; ADMIN accounts are provisioned out of band and can never be
// self-assigned through the public API.
const (
	RoleAdmin    = "ADMIN"
	RoleVendor   = "VENDOR"
	RoleCustomer = "CUSTOMER"
)

// ValidRegistrationRole reports whether a role may be requested at
// registration time.
func ValidRegistrationRole(role string) bool {
	return role == RoleVendor || role == RoleCustomer
}

// User represents a row in the `users` table. RefreshTokenHash holds the
// bcrypt hash of the SHA-256 digest of the last issued refresh token; it is
// NULL when the user has no active session. The plain refresh token is never
// stored, so a database dump cannot be replayed to mint new sessions.
//
// Fields:
//  ID               – primary key identifier of the user.
//  Name             – display name.
//  Email            – unique email address.
//  PasswordHash     – bcrypt hashed password.
//  Role             – one of ADMIN, VENDOR, CUSTOMER.
//  RefreshTokenHash – hash of the current refresh token (NULL = no session).
//  IsActive         – whether the account is active.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
	ID               uint64         // users.id
	Name             string         // users.name
	Email            string         // users.email
	PasswordHash     string         // users.password_hash
	Role             string         // users.role
	RefreshTokenHash sql.NullString // users.refresh_token_hash (nullable)
	IsActive         bool           // users.is_active
	CreatedAt        time.Time      // users.created_at
	UpdatedAt        time.Time      // users.updated_at
}
