// Package service composes the scoring core, the store and the ingest
// pipeline into the operations served by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchmaker/internal/adapters/cache"
	"github.com/okian/matchmaker/internal/adapters/mq/queue"
	"github.com/okian/matchmaker/internal/adapters/mq/worker"
	"github.com/okian/matchmaker/internal/adapters/repository"
	"github.com/okian/matchmaker/internal/domain/behavior"
	"github.com/okian/matchmaker/internal/domain/dedupe"
	"github.com/okian/matchmaker/internal/domain/matching"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/socialcapital"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

const stopTimeout = 30 * time.Second

// Submission is the outcome of SubmitInteraction.
type Submission struct {
	ID        string `json:"interaction_id"`
	Duplicate bool   `json:"duplicate"`
}

// Service owns every component of a running matchmaker.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	profiles *cache.ProfileCache
	board    *repository.Leaderboard
	deduper  dedupe.Deduper
	queue    *queue.InMemoryQueue[model.InteractionEvent]
	pool     *worker.Pool

	behavior *behavior.Engine
	social   *socialcapital.Calculator
	matcher  *matching.Aggregator

	workerCount  int
	queueSize    int
	dedupeSize   int
	cacheSize    int
	cacheTTL     time.Duration
	concurrency  int
	matchingOpts []matching.Option
	now          func() time.Time

	started bool
	logger  logger.Logger
}

// New builds a Service. Reads work immediately; ingest needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  50_000,
		cacheSize:   10_000,
		cacheTTL:    5 * time.Minute,
		concurrency: 8,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}

	s.profiles = cache.NewProfileCache(s.store, cache.WithSize(s.cacheSize), cache.WithTTL(s.cacheTTL))
	s.board = repository.NewLeaderboard()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.behavior = behavior.NewEngine(s.profiles, s.profiles,
		behavior.WithConcurrency(s.concurrency),
		behavior.WithClock(s.now),
		behavior.WithLogger(s.logger.Named("behavior")))
	s.social = socialcapital.NewCalculator(s.profiles, socialcapital.WithLogger(s.logger.Named("socialcapital")))

	matchingOpts := append([]matching.Option{
		matching.WithConcurrency(s.concurrency),
		matching.WithLogger(s.logger.Named("matching")),
	}, s.matchingOpts...)
	s.matcher = matching.NewAggregator(s.profiles, s.profiles, s.behavior, matchingOpts...)
	return s
}

// Start rebuilds the leaderboard from the store and launches the ingest
// workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := s.rebuildLeaderboard(ctx); err != nil {
		return fmt.Errorf("rebuild leaderboard: %w", err)
	}

	s.queue = queue.NewInMemoryQueue[model.InteractionEvent](queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.queue, s.profiles, s.social, s.board,
		worker.WithWorkerCount(s.workerCount),
		worker.WithOnAppendFailure(s.deduper.Unrecord),
		worker.WithLogger(s.logger.Named("worker-pool")))
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matchmaker service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("ranked_users", s.board.Count(ctx)))
	return nil
}

// Stop drains the ingest queue and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if s.started {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "ingest did not drain", logger.Error(err))
		}
		s.started = false
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store", logger.Error(err))
	}
	s.logger.Info(ctx, "matchmaker service stopped")
}

func (s *Service) rebuildLeaderboard(ctx context.Context) error {
	users, err := s.store.ListProfiles(ctx, model.ProfileFilter{})
	if err != nil {
		return err
	}
	for _, p := range users {
		score, err := s.social.Calculate(ctx, p.ID)
		if err != nil {
			return err
		}
		s.board.Upsert(ctx, p.ID, score.Total)
	}
	return nil
}

// SubmitInteraction validates e and queues it for ingest. A missing id is
// generated and a missing timestamp is set to now. Resubmitting an id
// already seen is reported as a duplicate and not queued again.
func (s *Service) SubmitInteraction(ctx context.Context, e model.InteractionEvent) (Submission, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now().UTC()
	}
	if err := e.Validate(); err != nil {
		metrics.RecordErrorByComponent("service", "invalid_interaction")
		return Submission{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Submission{}, ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordInteractionDuplicate()
		s.logger.Debug(ctx, "duplicate interaction", logger.String("interaction_id", e.ID))
		return Submission{ID: e.ID, Duplicate: true}, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, e.ID)
		switch {
		case errors.Is(err, queue.ErrFull):
			return Submission{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			return Submission{}, ErrNotStarted
		default:
			return Submission{}, err
		}
	}
	return Submission{ID: e.ID}, nil
}

// PutProfile creates or replaces a profile. New users join the leaderboard
// with their current social capital.
func (s *Service) PutProfile(ctx context.Context, p model.Profile) error {
	if err := s.profiles.PutProfile(ctx, p); err != nil {
		return err
	}
	score, err := s.social.Calculate(ctx, p.ID)
	if err != nil {
		return err
	}
	s.board.Upsert(ctx, p.ID, score.Total)
	return nil
}

// GetProfile returns a stored profile.
func (s *Service) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	return s.profiles.GetProfile(ctx, id)
}

// ListProfiles returns stored profiles matching filter.
func (s *Service) ListProfiles(ctx context.Context, filter model.ProfileFilter) ([]model.Profile, error) {
	return s.profiles.ListProfiles(ctx, filter)
}

// CalculateEnhancedScore blends every signal for the pair.
func (s *Service) CalculateEnhancedScore(ctx context.Context, userA, userB string) (model.MatchCandidate, error) {
	return s.matcher.CalculateEnhancedScore(ctx, userA, userB)
}

// ExplainMatch returns the enhanced score with a recommendation verdict.
func (s *Service) ExplainMatch(ctx context.Context, userA, userB string) (model.Explanation, error) {
	return s.matcher.ExplainMatch(ctx, userA, userB)
}

// GetSmartRecommendations returns the best candidates for userID.
func (s *Service) GetSmartRecommendations(ctx context.Context, userID string, limit int) ([]model.MatchCandidate, error) {
	return s.matcher.GetSmartRecommendations(ctx, userID, limit)
}

// ScorePair runs one named strategy on the pair.
func (s *Service) ScorePair(ctx context.Context, userA, userB, strategy string) (model.ScoreResult, error) {
	return s.matcher.ScorePair(ctx, userA, userB, strategy)
}

// SerendipityMatches returns the serendipitous picks for userID.
func (s *Service) SerendipityMatches(ctx context.Context, userID string) ([]model.ScoredProfile, error) {
	return s.matcher.SerendipityMatches(ctx, userID)
}

// SemanticMatches returns the n most semantically similar users.
func (s *Service) SemanticMatches(ctx context.Context, userID string, n int) ([]model.ScoredProfile, error) {
	return s.matcher.SemanticMatches(ctx, userID, n)
}

// UserBehaviorPattern returns the behavior pattern of a known user.
func (s *Service) UserBehaviorPattern(ctx context.Context, userID string) (model.BehaviorPattern, error) {
	if err := s.requireProfiles(ctx, userID); err != nil {
		return model.BehaviorPattern{}, err
	}
	return s.behavior.UserBehaviorPattern(ctx, userID)
}

// CalculateEngagementScore returns the 0..100 engagement of a known user.
func (s *Service) CalculateEngagementScore(ctx context.Context, userID string) (int, error) {
	if err := s.requireProfiles(ctx, userID); err != nil {
		return 0, err
	}
	return s.behavior.CalculateEngagementScore(ctx, userID)
}

// SimilarUsersByBehavior returns users who behave like userID.
func (s *Service) SimilarUsersByBehavior(ctx context.Context, userID string, limit int) ([]model.SimilarUser, error) {
	if err := s.requireProfiles(ctx, userID); err != nil {
		return nil, err
	}
	return s.behavior.SimilarUsersByBehavior(ctx, userID, limit)
}

// PredictMatchInterest predicts how interested userID is in targetID.
func (s *Service) PredictMatchInterest(ctx context.Context, userID, targetID string) (int, error) {
	if err := s.requireProfiles(ctx, userID, targetID); err != nil {
		return 0, err
	}
	return s.behavior.PredictMatchInterest(ctx, userID, targetID)
}

// SocialCapital computes the social-capital score of a known user.
func (s *Service) SocialCapital(ctx context.Context, userID string) (model.SocialCapitalScore, error) {
	if err := s.requireProfiles(ctx, userID); err != nil {
		return model.SocialCapitalScore{}, err
	}
	return s.social.Calculate(ctx, userID)
}

// TopN returns the n users with the most social capital.
func (s *Service) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	return s.board.TopN(ctx, n)
}

// Rank returns the leaderboard entry of userID.
func (s *Service) Rank(ctx context.Context, userID string) (model.LeaderboardEntry, error) {
	return s.board.Rank(ctx, userID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	w := s.matcher.Weights()
	stats := map[string]interface{}{
		"started":         s.started,
		"worker_count":    s.workerCount,
		"queue_capacity":  s.queueSize,
		"dedupe_size":     s.deduper.Size(),
		"ranked_users":    s.board.Count(ctx),
		"cached_profiles": s.profiles.Len(),
		"weights": map[string]float64{
			"rule_based":    w.RuleBased,
			"semantic":      w.Semantic,
			"behavioral":    w.Behavioral,
			"compatibility": w.Compatibility,
		},
	}
	if s.started {
		stats["queue_length"] = s.queue.Len()
		stats["workers"] = s.pool.Stats()
	}
	metrics.UpdateLeaderboardSize(s.board.Count(ctx))
	return stats
}

// requireProfiles returns model.ErrNotFound for the first unknown id.
func (s *Service) requireProfiles(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.profiles.GetProfile(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
