package worker

import (
	"context"
	"time"

	"github.com/okian/matchmaker/pkg/logger"
)

// Option configures a Pool.
type Option func(*Pool)

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.count = n
		}
	}
}

// WithProcessTimeout bounds the work done for a single interaction.
func WithProcessTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.processTimeout = d
		}
	}
}

// WithOnAppendFailure registers fn to run with the interaction id whenever
// the store refuses an interaction.
func WithOnAppendFailure(fn func(ctx context.Context, id string)) Option {
	return func(p *Pool) {
		if fn != nil {
			p.onAppendFailure = fn
		}
	}
}

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
