package matching

import (
	"time"

	"github.com/okian/matchmaker/pkg/logger"
)

// Weights blend the four sub-scores of an enhanced match score.
type Weights struct {
	RuleBased     float64
	Semantic      float64
	Behavioral    float64
	Compatibility float64
}

// DefaultWeights returns the production blend.
func DefaultWeights() Weights {
	return Weights{RuleBased: 0.35, Semantic: 0.25, Behavioral: 0.20, Compatibility: 0.20}
}

func (w Weights) valid() bool {
	if w.RuleBased < 0 || w.Semantic < 0 || w.Behavioral < 0 || w.Compatibility < 0 {
		return false
	}
	return w.RuleBased+w.Semantic+w.Behavioral+w.Compatibility > 0
}

// ConfidencePolicy holds the variance and total thresholds of the
// confidence tiers. Variance is the largest pairwise gap between the
// rule-based, semantic and behavioural sub-scores.
type ConfidencePolicy struct {
	HighVariance   int
	HighTotal      int
	MediumVariance int
	MediumTotal    int
}

// DefaultConfidencePolicy returns the production thresholds.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{HighVariance: 15, HighTotal: 60, MediumVariance: 30, MediumTotal: 40}
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWeights overrides the blend weights. Negative or all-zero weights are
// ignored.
func WithWeights(w Weights) Option {
	return func(a *Aggregator) {
		if w.valid() {
			a.weights = w
		}
	}
}

// WithConfidencePolicy overrides the confidence thresholds.
func WithConfidencePolicy(p ConfidencePolicy) Option {
	return func(a *Aggregator) {
		if p.HighVariance > 0 && p.MediumVariance > 0 {
			a.confidence = p
		}
	}
}

// WithCandidateLimit caps the recommendation candidate pool.
func WithCandidateLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.candidateLimit = n
		}
	}
}

// WithConcurrency bounds how many candidates are scored at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithMinScore sets the exclusive lower bound for recommended totals.
func WithMinScore(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 && n <= 100 {
			a.minScore = n
		}
	}
}

// WithFetchTimeout bounds each round of collaborator fetches.
func WithFetchTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.fetchTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
