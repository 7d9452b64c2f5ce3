package service

import "errors"

var (
	// ErrNotStarted is returned by SubmitInteraction before Start or after
	// Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrBackpressure is returned when the ingest queue is full. The
	// interaction was not recorded and may be resubmitted.
	ErrBackpressure = errors.New("ingest queue full")
)
