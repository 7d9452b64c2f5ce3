// Package queue is the bounded buffer between interaction submission and
// the ingest workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/matchmaker/pkg/metrics"
)

const defaultCapacity = 10000

// Queue is a bounded FIFO with non-blocking enqueue.
type Queue[T any] interface {
	// Enqueue adds item without blocking. It returns ErrFull when the
	// queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, item T) error

	// Dequeue blocks until an item is available. It returns false once
	// the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) (T, bool)

	Len() int
	Cap() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue over a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates an empty queue.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}
	metrics.UpdateQueueCapacity(q.capacity)
	q.report()
	return q
}

// Enqueue adds item if there is room.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return err
	}

	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return ErrClosed
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue()
		q.report()
		return nil
	default:
		metrics.RecordQueueEnqueueError("full")
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue waits for the next item.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) (T, bool) {
	select {
	case item, ok := <-q.items:
		if ok {
			metrics.RecordQueueDequeue()
			q.report()
		}
		return item, ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Len returns the number of buffered items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close stops accepting items. Buffered items can still be dequeued.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.items)
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue[T]) report() {
	n := len(q.items)
	metrics.UpdateQueueSize(n)
	metrics.UpdateQueueUtilization(float64(n) / float64(q.capacity))
}
