package domain

import "errors"

var (
	// ErrNotFound reports a missing stock item, allocation record, or bin.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a lost optimistic-concurrency race or a mutation
	// that would drive a quantity negative. The operation was not applied;
	// callers reload state and retry, or surface it for manual reconciliation.
	ErrConflict = errors.New("stock conflict")

	// ErrInvalidQuantity reports a quantity that must be positive but is not.
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
