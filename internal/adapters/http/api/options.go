package api

import "github.com/okian/matchmaker/pkg/logger"

type config struct {
	maxRecommendationLimit int
	maxLeaderboardLimit    int
	log                    logger.Logger
}

// Option configures a Server.
type Option func(*config)

// WithMaxRecommendationLimit caps the limit accepted by the recommendation
// and similarity routes. Larger requests are clamped.
func WithMaxRecommendationLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxRecommendationLimit = n
		}
	}
}

// WithMaxLeaderboardLimit caps GET /leaderboard. Larger requests are rejected.
func WithMaxLeaderboardLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLeaderboardLimit = n
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}
