// Package service implements the user operations on top of a
// storage.Storage: it validates payloads, calls the store, and turns store
// outcomes into ValidationError, NotFoundError or PersistenceError.
//
// Validation always completes before the store is touched. Store errors
// are never retried.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"github.com/aanand-mishra/users-api/internal/validation"
)

// Client-facing messages for store failures.
const (
	MsgListFailed   = "Failed to fetch users."
	MsgGetFailed    = "Failed to fetch user."
	MsgCreateFailed = "An error occurred while saving the user."
	MsgUpdateFailed = "Failed to update user."
	MsgDeleteFailed = "Failed to delete user."
)

type Service struct {
	store  storage.Storage
	create validation.Schema
	update validation.Schema
	log    *slog.Logger
}

// New returns a Service using store. The store must already be connected
// and its schema ensured.
func New(store storage.Storage, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		create: validation.NewCreateSchema(),
		update: validation.NewUpdateSchema(),
		log:    log,
	}
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// List returns every user. Either all rows come back or an error does.
func (s *Service) List(ctx context.Context) ([]types.User, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return nil, &PersistenceError{Message: MsgListFailed, Err: err}
	}
	return users, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, rawID string) (types.User, error) {
	id, ok := parseID(rawID)
	if !ok {
		return types.User{}, &NotFoundError{ID: rawID}
	}
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.User{}, &NotFoundError{ID: rawID}
		}
		return types.User{}, &PersistenceError{Message: MsgGetFailed, Err: err}
	}
	return user, nil
}

// Create validates p with the create rules, inserts it, and returns the
// stored user including its new id.
//
// A duplicate email is reported like any other store failure.
func (s *Service) Create(ctx context.Context, p validation.Payload) (types.User, error) {
	if res := s.create.Validate(p); !res.OK() {
		return types.User{}, &ValidationError{Result: res}
	}

	user, err := p.User()
	if err != nil {
		return types.User{}, &PersistenceError{Message: MsgCreateFailed, Err: err}
	}

	id, err := s.store.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			s.log.WarnContext(ctx, "duplicate email rejected", slog.String("email", user.Email))
		}
		return types.User{}, &PersistenceError{Message: MsgCreateFailed, Err: err}
	}

	user.ID = id
	return user, nil
}

// Update validates p with the (looser) update rules and replaces every
// column of the addressed row.
func (s *Service) Update(ctx context.Context, rawID string, p validation.Payload) error {
	if res := s.update.Validate(p); !res.OK() {
		return &ValidationError{Result: res}
	}

	id, ok := parseID(rawID)
	if !ok {
		return &NotFoundError{ID: rawID}
	}

	// Truthy but non-numeric ages pass validation; the INT column cannot
	// hold them. A missing row still wins over the bad age.
	user, err := p.User()
	if err != nil {
		if _, getErr := s.store.GetUserByID(ctx, id); getErr != nil {
			if errors.Is(getErr, storage.ErrNotFound) {
				return &NotFoundError{ID: rawID}
			}
			return &PersistenceError{Message: MsgUpdateFailed, Err: getErr}
		}
		return &PersistenceError{Message: MsgUpdateFailed, Err: err}
	}

	if err := s.store.UpdateUserByID(ctx, id, user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &NotFoundError{ID: rawID}
		}
		return &PersistenceError{Message: MsgUpdateFailed, Err: err}
	}
	return nil
}

// Delete removes the addressed row.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, ok := parseID(rawID)
	if !ok {
		return &NotFoundError{ID: rawID}
	}

	if err := s.store.DeleteUserByID(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &NotFoundError{ID: rawID}
		}
		return &PersistenceError{Message: MsgDeleteFailed, Err: err}
	}
	return nil
}

// parseID reports false for ids that cannot name a row.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
