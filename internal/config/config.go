// Package config holds the service configuration and its layered loader.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr is the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Ingest pipeline.
	QueueSize   int `koanf:"queue_size"`
	WorkerCount int `koanf:"worker_count"`
	DedupeSize  int `koanf:"dedupe_size"`

	// StoreDriver is memory or sqlite. SQLitePath is used by the latter.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	ProfileCacheSize int           `koanf:"profile_cache_size"`
	ProfileCacheTTL  time.Duration `koanf:"profile_cache_ttl"`

	// Enhanced score blend.
	WeightRuleBased     float64 `koanf:"weight_rule_based"`
	WeightSemantic      float64 `koanf:"weight_semantic"`
	WeightBehavioral    float64 `koanf:"weight_behavioral"`
	WeightCompatibility float64 `koanf:"weight_compatibility"`

	// Confidence thresholds over the sub-score variance and the total.
	ConfidenceHighVariance   int `koanf:"confidence_high_variance"`
	ConfidenceHighTotal      int `koanf:"confidence_high_total"`
	ConfidenceMediumVariance int `koanf:"confidence_medium_variance"`
	ConfidenceMediumTotal    int `koanf:"confidence_medium_total"`

	CandidatePoolSize      int           `koanf:"candidate_pool_size"`
	ScoringConcurrency     int           `koanf:"scoring_concurrency"`
	MaxRecommendationLimit int           `koanf:"max_recommendation_limit"`
	FetchTimeout           time.Duration `koanf:"fetch_timeout"`

	// LeaderboardLimit caps GET /leaderboard?limit.
	LeaderboardLimit int `koanf:"leaderboard_limit"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",

		QueueSize:   10_000,
		WorkerCount: runtime.NumCPU(),
		DedupeSize:  50_000,

		StoreDriver: "memory",
		SQLitePath:  "data/matchmaker.db",

		ProfileCacheSize: 10_000,
		ProfileCacheTTL:  5 * time.Minute,

		WeightRuleBased:     0.35,
		WeightSemantic:      0.25,
		WeightBehavioral:    0.20,
		WeightCompatibility: 0.20,

		ConfidenceHighVariance:   15,
		ConfidenceHighTotal:      60,
		ConfidenceMediumVariance: 30,
		ConfidenceMediumTotal:    40,

		CandidatePoolSize:      50,
		ScoringConcurrency:     8,
		MaxRecommendationLimit: 50,
		FetchTimeout:           5 * time.Second,

		LeaderboardLimit: 100,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.CandidatePoolSize < 1:
		return fmt.Errorf("%w: candidate_pool_size must be positive, got %d", ErrInvalidConfig, c.CandidatePoolSize)
	case c.MaxRecommendationLimit < 1:
		return fmt.Errorf("%w: max_recommendation_limit must be positive, got %d", ErrInvalidConfig, c.MaxRecommendationLimit)
	case c.LeaderboardLimit < 1:
		return fmt.Errorf("%w: leaderboard_limit must be positive, got %d", ErrInvalidConfig, c.LeaderboardLimit)
	case c.ConfidenceHighVariance < 1:
		return fmt.Errorf("%w: confidence_high_variance must be positive, got %d", ErrInvalidConfig, c.ConfidenceHighVariance)
	case c.ConfidenceMediumVariance < 1:
		return fmt.Errorf("%w: confidence_medium_variance must be positive, got %d", ErrInvalidConfig, c.ConfidenceMediumVariance)
	case c.ConfidenceHighTotal < 0 || c.ConfidenceHighTotal > 100:
		return fmt.Errorf("%w: confidence_high_total must be within 0..100, got %d", ErrInvalidConfig, c.ConfidenceHighTotal)
	case c.ConfidenceMediumTotal < 0 || c.ConfidenceMediumTotal > 100:
		return fmt.Errorf("%w: confidence_medium_total must be within 0..100, got %d", ErrInvalidConfig, c.ConfidenceMediumTotal)
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.StoreDriver {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	weights := []float64{c.WeightRuleBased, c.WeightSemantic, c.WeightBehavioral, c.WeightCompatibility}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
		}
		sum += w
	}
	if sum == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	}
	return nil
}
