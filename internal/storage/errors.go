package storage

import "errors"

// Storage errors shared by every implementation.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Allocation rows are unique per (address, round); round ids and
	// amnesty grants are unique outright.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict is returned when an operation observes a state it cannot
	// act on: finalizing an already-finalized round, or updating a round
	// whose status moved underneath the caller. Conflicts are rejected, not merged.
	ErrConflict = errors.New("state conflict")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
