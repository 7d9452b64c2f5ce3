package behavior

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// Defaults for the engine.
const (
	defaultConcurrency = 8
	activityLookback   = 30 * 24 * time.Hour
	minRecentEvents    = 5
)

// InteractionLog reads the append-only interaction log.
type InteractionLog interface {
	// GetRecentEvents returns up to limit events by subjectID, newest-first.
	GetRecentEvents(ctx context.Context, subjectID string, limit int) ([]model.InteractionEvent, error)
	// GetEventsBetween returns up to limit events linking a and b in either
	// direction, newest-first.
	GetEventsBetween(ctx context.Context, a, b string, limit int) ([]model.InteractionEvent, error)
}

// ProfileLister lists candidate profiles.
type ProfileLister interface {
	ListProfiles(ctx context.Context, filter model.ProfileFilter) ([]model.Profile, error)
}

// Engine computes behaviour patterns and predictions over the log.
type Engine struct {
	log      InteractionLog
	profiles ProfileLister

	concurrency int
	now         func() time.Time
	logger      logger.Logger
}

// NewEngine creates an Engine over the given collaborators.
func NewEngine(log InteractionLog, profiles ProfileLister, opts ...Option) *Engine {
	e := &Engine{
		log:         log,
		profiles:    profiles,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("behavior")
	}
	return e
}

// UserBehaviorPattern derives the pattern of userID from its most recent
// events.
func (e *Engine) UserBehaviorPattern(ctx context.Context, userID string) (model.BehaviorPattern, error) {
	events, err := e.log.GetRecentEvents(ctx, userID, PatternWindow)
	if err != nil {
		return model.BehaviorPattern{}, fmt.Errorf("%w: recent events for %s: %w", ErrFetchFailed, userID, err)
	}
	return DerivePattern(userID, events), nil
}

// CalculateEngagementScore returns the engagement score of userID.
func (e *Engine) CalculateEngagementScore(ctx context.Context, userID string) (int, error) {
	p, err := e.UserBehaviorPattern(ctx, userID)
	if err != nil {
		return 0, err
	}
	return EngagementScore(p), nil
}

// SimilarUsersByBehavior ranks active users with recent activity by how
// closely they behave like userID.
func (e *Engine) SimilarUsersByBehavior(ctx context.Context, userID string, limit int) ([]model.SimilarUser, error) {
	if limit <= 0 {
		return []model.SimilarUser{}, nil
	}

	target, err := e.UserBehaviorPattern(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := e.profiles.ListProfiles(ctx, model.ProfileFilter{ActiveOnly: true, Exclude: []string{userID}})
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %w", ErrFetchFailed, err)
	}

	since := e.now().Add(-activityLookback)
	results := make([]*model.SimilarUser, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			events, err := e.log.GetRecentEvents(gctx, c.ID, PatternWindow)
			if err != nil {
				return fmt.Errorf("%w: recent events for %s: %w", ErrFetchFailed, c.ID, err)
			}
			if CountSince(events, since) <= minRecentEvents {
				return nil
			}
			results[i] = &model.SimilarUser{
				UserID:     c.ID,
				Similarity: Similarity(target, DerivePattern(c.ID, events)),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.SimilarUser, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}

	e.logger.Debug(ctx, "behaviour similarity computed",
		logger.String("user_id", userID),
		logger.Int("pool", len(candidates)),
		logger.Int("hits", len(out)))
	return out, nil
}

// PredictMatchInterest estimates how interested userID is in targetID
// from the recent history between them.
func (e *Engine) PredictMatchInterest(ctx context.Context, userID, targetID string) (int, error) {
	var (
		pattern model.BehaviorPattern
		history []model.InteractionEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pattern, err = e.UserBehaviorPattern(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = e.log.GetEventsBetween(gctx, userID, targetID, PairWindow)
		if err != nil {
			return fmt.Errorf("%w: events between %s and %s: %w", ErrFetchFailed, userID, targetID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return PredictFromHistory(history, pattern.MatchAcceptanceRate), nil
}
