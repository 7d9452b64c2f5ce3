package repository

import "errors"

// Sentinel kinds for repository errors. Unknown profiles and leaderboard
// entries surface as model.ErrNotFound.
var (
	ErrInvalidLimit = errors.New("invalid limit")
	ErrUnknownStore = errors.New("unknown store driver")
)
