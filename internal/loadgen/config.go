// Package loadgen drives a running matchmaker over HTTP with synthetic
// attendees and interactions, then checks the read models it serves.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Users           int           // Number of profiles to create
	Interactions    int           // Number of interactions to submit
	Workers         int           // Number of concurrent submitters
	Timeout         time.Duration // HTTP request timeout
	SettleTimeout   time.Duration // How long to wait for ingest to drain
	Seed            uint64        // Generator seed; equal seeds give equal data
	RecommendSample int           // Users whose recommendations are verified
	TopN            int           // Leaderboard entries to fetch
	Verbose         bool
}

// Stats holds run statistics.
type Stats struct {
	ProfilesCreated     int
	Submitted           int
	Accepted            int
	Duplicate           int
	Rejected            int
	Failed              int
	RecommendationsRead int
	LeaderboardEntries  int
	LatencyMeanMs       float64
	LatencyStdDevMs     float64
	LatencyP95Ms        float64
	StartTime           time.Time
	Duration            time.Duration
}
