package queue

import "errors"

var (
	// ErrFull is returned when the queue is at capacity.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned by Enqueue after Close.
	ErrClosed = errors.New("queue closed")
)
