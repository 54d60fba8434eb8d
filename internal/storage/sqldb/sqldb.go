// Package sqldb provides the database/sql implementation of the
// storage.Storage interface for SQLite, MySQL and PostgreSQL.
//
// The driver packages imported by dialect.go register themselves with
// database/sql in their init functions; the configured driver name picks
// one at startup. All SQL is written once with "?" placeholders and
// rebound for PostgreSQL.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aanand-mishra/users-api/internal/config"
	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// SQL statements. Explicit column lists, never SELECT *.
// ─────────────────────────────────────────────────────────────────────────────

const (
	sqlInsertUser = `INSERT INTO users (name, email, age, address) VALUES (?, ?, ?, ?)`

	sqlGetUserByID = `SELECT id, name, email, age, address FROM users WHERE id = ? LIMIT 1`

	sqlGetUsers = `SELECT id, name, email, age, address FROM users`

	sqlUpdateUser = `UPDATE users SET name = ?, email = ?, age = ?, address = ? WHERE id = ?`

	sqlDeleteUser = `DELETE FROM users WHERE id = ?`
)

// Store is the concrete implementation of storage.Storage.
// It holds one *sql.DB, which is safe for concurrent use by the request
// goroutines; row locking and the email UNIQUE constraint are left to the
// database itself.
type Store struct {
	db      *sql.DB
	dialect dialect
	log     *slog.Logger
}

var _ storage.Storage = (*Store)(nil)

// New opens the database described by cfg and verifies it is reachable.
// It does not create the schema; call EnsureSchema before serving traffic.
func New(ctx context.Context, cfg config.Storage, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: %w", err)
	}

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: %w", err)
	}

	// sql.Open only validates its arguments; PingContext below is the
	// first real connection.
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb.New: open db: %w", err)
	}

	// SQLite serializes writers anyway, and a single connection keeps an
	// in-memory database alive for the lifetime of the pool.
	if d.driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb.New: ping: %w", err)
	}

	return &Store{db: db, dialect: d, log: log}, nil
}

// EnsureSchema runs CREATE TABLE IF NOT EXISTS for the users table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.createTable); err != nil {
		return fmt.Errorf("EnsureSchema: create table: %w", err)
	}
	return nil
}

// Ping reports whether the database still answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes every pooled connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateUser inserts a new row and returns its store-assigned id.
// The address is serialized to JSON here; nothing above this layer sees the
// column encoding.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) CreateUser(ctx context.Context, user types.User) (int64, error) {
	addr, err := encodeAddress(user.Address)
	if err != nil {
		return 0, fmt.Errorf("CreateUser: %w", err)
	}

	query := sqlInsertUser
	if s.dialect.returningID {
		query += " RETURNING id"
	}

	stmt, err := s.db.PrepareContext(ctx, s.dialect.rebind(query))
	if err != nil {
		return 0, fmt.Errorf("CreateUser: prepare: %w", classify(err))
	}
	defer stmt.Close()

	if s.dialect.returningID {
		var id int64
		if err := stmt.QueryRowContext(ctx, user.Name, user.Email, user.Age, addr).Scan(&id); err != nil {
			return 0, fmt.Errorf("CreateUser: insert: %w", classify(err))
		}
		return id, nil
	}

	result, err := stmt.ExecContext(ctx, user.Name, user.Email, user.Age, addr)
	if err != nil {
		return 0, fmt.Errorf("CreateUser: exec: %w", classify(err))
	}

	lastID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("CreateUser: last insert id: %w", err)
	}
	return lastID, nil
}

// GetUserByID fetches exactly one row matched by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	stmt, err := s.db.PrepareContext(ctx, s.dialect.rebind(sqlGetUserByID))
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByID: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		user types.User
		raw  []byte
	)
	err = stmt.QueryRowContext(ctx, id).Scan(&user.ID, &user.Name, &user.Email, &user.Age, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, fmt.Errorf("no user found with id %d: %w", id, storage.ErrNotFound)
		}
		return types.User{}, fmt.Errorf("GetUserByID: scan: %w", err)
	}

	user.Address = s.addressOrFallback(ctx, user.ID, raw)
	return user, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// GetUsers returns all rows in whatever order the database yields them.
// A row whose address cannot be decoded still comes back, carrying
// types.FallbackAddress; only query or scan failures abort the listing.
// ─────────────────────────────────────────────────────────────────────────────
func (s *Store) GetUsers(ctx context.Context) ([]types.User, error) {
	stmt, err := s.db.PrepareContext(ctx, s.dialect.rebind(sqlGetUsers))
	if err != nil {
		return nil, fmt.Errorf("GetUsers: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetUsers: query: %w", err)
	}
	defer rows.Close()

	// Non-nil so an empty table encodes as [] rather than null.
	users := make([]types.User, 0)

	for rows.Next() {
		var (
			user types.User
			raw  []byte
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Age, &raw); err != nil {
			return nil, fmt.Errorf("GetUsers: scan row: %w", err)
		}
		user.Address = s.addressOrFallback(ctx, user.ID, raw)
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetUsers: rows iteration: %w", err)
	}
	return users, nil
}

// UpdateUserByID overwrites every column of the row; fields are replaced,
// never merged.
func (s *Store) UpdateUserByID(ctx context.Context, id int64, user types.User) error {
	addr, err := encodeAddress(user.Address)
	if err != nil {
		return fmt.Errorf("UpdateUserByID: %w", err)
	}

	stmt, err := s.db.PrepareContext(ctx, s.dialect.rebind(sqlUpdateUser))
	if err != nil {
		return fmt.Errorf("UpdateUserByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, user.Name, user.Email, user.Age, addr, id)
	if err != nil {
		return fmt.Errorf("UpdateUserByID: exec: %w", classify(err))
	}
	return affectedOne(result, id, "UpdateUserByID")
}

// DeleteUserByID removes a row by primary key.
func (s *Store) DeleteUserByID(ctx context.Context, id int64) error {
	stmt, err := s.db.PrepareContext(ctx, s.dialect.rebind(sqlDeleteUser))
	if err != nil {
		return fmt.Errorf("DeleteUserByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteUserByID: exec: %w", err)
	}
	return affectedOne(result, id, "DeleteUserByID")
}

func affectedOne(result sql.Result, id int64, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("no user found with id %d: %w", id, storage.ErrNotFound)
	}
	return nil
}
