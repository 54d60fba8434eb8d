package service

import (
	"fmt"

	"github.com/aanand-mishra/users-api/internal/validation"
)

// ValidationError means the payload broke a named rule. Nothing was written.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Result.Rule, e.Result.Message)
}

// NotFoundError means no user has the addressed id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user %s not found", e.ID)
}

// PersistenceError means the store rejected or failed the operation:
// constraint violations, lost connections, failed queries.
type PersistenceError struct {
	// Message is safe to show to clients.
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
