// Package auth persists the bearer token used by the task client and
// routes users back to sign-in when the API rejects it.
package auth

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for token store operations.
var (
	// ErrEmptyToken is returned when SetToken is called with an empty token.
	ErrEmptyToken = errors.New("auth: token is empty")

	// ErrClosed is returned when a closed store is used.
	ErrClosed = errors.New("auth: store closed")
)

// Store holds at most one bearer token. Implementations must be safe for
// concurrent use; a single store is shared by every in-flight call.
type Store interface {
	// GetToken returns the token and true when one is stored.
	// A missing token is not an error.
	GetToken(ctx context.Context) (string, bool, error)
	SetToken(ctx context.Context, token string) error
	// RemoveToken deletes the token. Removing a missing token succeeds.
	RemoveToken(ctx context.Context) error
}

// OperationError wraps a backend failure during a store operation.
type OperationError struct {
	Op      string // get, set, remove
	Backend string // memory, file, redis
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("auth: %s store %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func newOperationError(backend, op string, err error) *OperationError {
	return &OperationError{Op: op, Backend: backend, Err: err}
}

// ConnectionError represents a failure to reach a remote store.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("auth: connection error: %s failed for %s: %v", e.Op, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
