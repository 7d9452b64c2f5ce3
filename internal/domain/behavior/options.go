package behavior

import (
	"time"

	"github.com/okian/matchmaker/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the per-candidate fetches of SimilarUsersByBehavior.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithClock overrides the time source used for the activity lookback.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
