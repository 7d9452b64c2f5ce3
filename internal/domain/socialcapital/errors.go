package socialcapital

import "errors"

// ErrCountFailed wraps a failing aggregate counter.
var ErrCountFailed = errors.New("social capital count failed")
