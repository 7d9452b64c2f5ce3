package dedupe

type config struct {
	maxSize int
}

// Option configures NewInMemoryDeduper.
type Option func(*config)

// WithMaxSize bounds the window. Zero or negative disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
