package matching

import "errors"

// Sentinel kinds for matching errors. Unknown subjects surface as
// model.ErrNotFound.
var (
	ErrFetchFailed  = errors.New("matching fetch failed")
	ErrInvalidLimit = errors.New("invalid limit")
)
