package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing caller input. Not retryable.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock marks a sale that would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict marks a transaction that could not commit after bounded
	// retries. The whole operation is safe to retry.
	ErrConflict = errors.New("conflicting concurrent write")

	// ErrAuth marks a failed identity verification.
	ErrAuth = errors.New("unauthorized")

	// ErrExists marks a uniqueness violation on create (duplicate type name).
	ErrExists = errors.New("already exists")
)

// InsufficientStockError carries the detail for a rejected sale line.
type InsufficientStockError struct {
	ItemName  string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, available %d",
		e.ItemName, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
