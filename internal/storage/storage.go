// Package storage defines the Storage interface, the contract every
// database backend must satisfy to serve the users API.
//
// Handlers and the service layer depend only on this interface, so the
// concrete backend (SQLite, MySQL, PostgreSQL) is picked once in main.go
// and tests can run against an in-memory SQLite file.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/users-api/internal/types"
)

// Sentinel errors returned (wrapped) by Storage implementations.
// Use errors.Is to test for them.
var (
	// ErrNotFound means no row matched the given id.
	ErrNotFound = errors.New("storage: user not found")

	// ErrDuplicateKey means a UNIQUE constraint (users.email) rejected the write.
	ErrDuplicateKey = errors.New("storage: duplicate key")
)

// Storage is the database contract.
type Storage interface {
	// EnsureSchema creates the users table if it does not exist yet.
	// Safe to call on every startup.
	EnsureSchema(ctx context.Context) error

	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error

	// CreateUser inserts a new row and returns the store-assigned id.
	CreateUser(ctx context.Context, user types.User) (int64, error)

	// GetUserByID fetches one row. Returns ErrNotFound if nothing matches.
	GetUserByID(ctx context.Context, id int64) (types.User, error)

	// GetUsers returns every row in store order.
	// Returns an empty slice (not nil) if the table is empty.
	GetUsers(ctx context.Context) ([]types.User, error)

	// UpdateUserByID replaces every column of the row with the given id.
	// Returns ErrNotFound if nothing matches.
	UpdateUserByID(ctx context.Context, id int64, user types.User) error

	// DeleteUserByID removes the row permanently.
	// Returns ErrNotFound if nothing matches.
	DeleteUserByID(ctx context.Context, id int64) error

	// Close releases the underlying connection pool.
	Close() error
}
