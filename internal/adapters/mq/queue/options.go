package queue

type config struct {
	capacity int
}

// Option configures an InMemoryQueue.
type Option func(*config)

// WithCapacity sets the maximum number of buffered items.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}
