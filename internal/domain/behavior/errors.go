package behavior

import "errors"

// ErrFetchFailed wraps collaborator failures while reading the log.
var ErrFetchFailed = errors.New("behavior fetch failed")
