package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a concurrent write beat this one.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientStock aborts a finalize whose guarded stock
	// decrement could not be satisfied.
	ErrInsufficientStock = errors.New("insufficient stock")
)
