// Package errors provides the error taxonomy shared by the inventory services.
//
// Every service operation that fails does so with exactly one of these
// sentinels, possibly wrapped with context via fmt.Errorf("...: %w", err).
// Callers discriminate with errors.Is.
package errors

import "errors"

var (
	// ErrStoreUnavailable covers any failure talking to the backing store.
	// Never retried automatically; the current operation is aborted.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidInput marks caller-supplied input that violates a documented
	// constraint. Recoverable by correcting the input.
	ErrInvalidInput = errors.New("invalid input")

	ErrProductNotFound   = errors.New("product not found")
	ErrProductExists     = errors.New("product already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserExists        = errors.New("user already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
)
