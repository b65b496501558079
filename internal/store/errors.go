package store

import "errors"

var (
	// ErrNotFound is returned when a ledger entry does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnknownDriver is returned by Open for unsupported drivers
	ErrUnknownDriver = errors.New("unknown store driver")
)
