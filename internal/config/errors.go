package config

import "errors"

var (
	// ErrNotFound is returned when a requested resource does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedDriver is returned by Open for a database driver the
	// store has no dialect for.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
