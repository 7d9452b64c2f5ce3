package model

import "errors"

// Sentinel error kinds shared by the core and its collaborators.
var (
	// ErrNotFound marks an unknown subject. It is distinct from degenerate
	// but valid input, which never errors.
	ErrNotFound = errors.New("not found")

	ErrInvalidProfile   = errors.New("invalid profile")
	ErrInvalidEvent     = errors.New("invalid interaction event")
	ErrInvalidEventKind = errors.New("invalid event kind")
)
