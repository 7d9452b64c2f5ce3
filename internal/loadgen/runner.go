package loadgen

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

const settlePollInterval = 50 * time.Millisecond

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("interactions", cfg.Interactions),
		logger.Int("workers", cfg.Workers))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Seed)
	profiles := gen.Profiles(cfg.Users)
	if err := createProfiles(ctx, client, profiles, cfg.Workers); err != nil {
		return stats, fmt.Errorf("create profiles: %w", err)
	}
	stats.ProfilesCreated = len(profiles)

	events := gen.Interactions(profiles, cfg.Interactions, time.Now())
	partners, err := submitInteractions(ctx, client, cfg, events, stats)
	if err != nil {
		return stats, fmt.Errorf("submit interactions: %w", err)
	}

	if err := waitSettled(ctx, client, int64(stats.Accepted), cfg.SettleTimeout); err != nil {
		return stats, err
	}

	inactive := make(map[string]bool)
	for _, p := range profiles {
		if !p.Active {
			inactive[p.ID] = true
		}
	}
	for i := 0; i < min(cfg.RecommendSample, len(profiles)); i++ {
		id := profiles[i].ID
		recs, err := client.Recommendations(ctx, id, 10)
		if err != nil {
			return stats, fmt.Errorf("recommendations for %s: %w", id, err)
		}
		if err := VerifyRecommendations(id, recs, partners.of(id), inactive); err != nil {
			return stats, err
		}
		stats.RecommendationsRead++
	}

	board, err := client.Leaderboard(ctx, cfg.TopN)
	if err != nil {
		return stats, fmt.Errorf("leaderboard: %w", err)
	}
	if err := VerifyLeaderboard(board); err != nil {
		return stats, err
	}
	stats.LeaderboardEntries = len(board)

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "load run completed",
		logger.Int("profiles", stats.ProfilesCreated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("recommendations_verified", stats.RecommendationsRead),
		logger.Int("leaderboard_entries", stats.LeaderboardEntries),
		logger.Float64("latency_mean_ms", stats.LatencyMeanMs),
		logger.Float64("latency_stddev_ms", stats.LatencyStdDevMs),
		logger.Float64("latency_p95_ms", stats.LatencyP95Ms),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

func createProfiles(ctx context.Context, client *Client, profiles []model.Profile, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, p := range profiles {
		g.Go(func() error { return client.PutProfile(gctx, p) })
	}
	return g.Wait()
}

// partnerSet records accepted matches the service has acknowledged.
type partnerSet struct {
	mu    sync.Mutex
	pairs map[string]map[string]bool
}

func (s *partnerSet) add(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pairs == nil {
		s.pairs = make(map[string]map[string]bool)
	}
	for _, pr := range [][2]string{{a, b}, {b, a}} {
		if s.pairs[pr[0]] == nil {
			s.pairs[pr[0]] = make(map[string]bool)
		}
		s.pairs[pr[0]][pr[1]] = true
	}
}

func (s *partnerSet) of(id string) map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairs[id]
}

// submitInteractions posts events from cfg.Workers goroutines and records
// per-request latency.
func submitInteractions(ctx context.Context, client *Client, cfg *Config, events []model.InteractionEvent, stats *Stats) (*partnerSet, error) {
	var (
		accepted, duplicate, rejected, failed atomic.Int64
		mu                                    sync.Mutex
		latencies                             = make([]float64, 0, len(events))
		partners                              = &partnerSet{}
		wg                                    sync.WaitGroup
	)
	work := make(chan model.InteractionEvent, max(cfg.Workers, 1)*2)

	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range work {
				start := time.Now()
				outcome, err := client.SubmitInteraction(ctx, e)
				elapsed := float64(time.Since(start).Microseconds()) / 1000

				mu.Lock()
				latencies = append(latencies, elapsed)
				mu.Unlock()

				switch outcome {
				case OutcomeAccepted:
					accepted.Add(1)
					if e.Kind == model.KindMatchAccepted {
						partners.add(e.SubjectID, e.TargetID)
					}
				case OutcomeDuplicate:
					duplicate.Add(1)
				case OutcomeRejected:
					rejected.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "submission failed", logger.Error(err))
					}
				}
			}
		}()
	}

	func() {
		defer close(work)
		for _, e := range events {
			select {
			case <-ctx.Done():
				return
			case work <- e:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = len(latencies)
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.LatencyMeanMs, stats.LatencyStdDevMs, stats.LatencyP95Ms = summarize(latencies)

	if err := ctx.Err(); err != nil {
		return partners, err
	}
	return partners, nil
}

// summarize returns the mean, standard deviation and 95th percentile of xs.
func summarize(xs []float64) (mean, stddev, p95 float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mean, stddev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		stddev = 0
	}
	return mean, stddev, stat.Quantile(0.95, stat.Empirical, sorted, nil)
}

// waitSettled polls /stats until the workers are done with want
// interactions.
func waitSettled(ctx context.Context, client *Client, want int64, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()
	for {
		got, err := client.Settled(ctx)
		if err == nil && got >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ingest did not settle: processed %d of %d: %w", got, want, ctx.Err())
		case <-ticker.C:
		}
	}
}
