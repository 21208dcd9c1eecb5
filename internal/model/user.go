package model

import "time"

// Roles understood by the access gate.
const (
	RoleCustomer = "CUSTOMER"
	RoleOwner    = "OWNER"
)

// User represents an account as stored in the `users` table.  There are
// no json tags; handlers render their own response shapes so that the
// password hash never leaves the repository layer.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (lower-cased)
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in `refresh_tokens`.  Only the SHA-256
// digest of the raw token is persisted.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
