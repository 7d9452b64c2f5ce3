// Package matching combines the independent scorers into an enhanced match
// score with a confidence tier, and ranks candidate pools with it.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/matchmaker/internal/domain/behavior"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/scoring"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

// Defaults for the aggregator.
const (
	NeutralScore = 50

	defaultCandidateLimit = 50
	defaultConcurrency    = 8
	defaultMinScore       = 30
	defaultFetchTimeout   = 5 * time.Second

	strongSignal = 70
)

// Sub-score names used in logs and fallback metrics.
const (
	componentBehavioral    = "behavioral"
	componentCompatibility = "compatibility"
	strategyEnhanced       = "enhanced"
)

// ProfileStore reads profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	ListProfiles(ctx context.Context, filter model.ProfileFilter) ([]model.Profile, error)
}

// PartnerLister returns the users a user has already matched with.
type PartnerLister interface {
	ListAcceptedMatchPartners(ctx context.Context, userID string) ([]model.Profile, error)
}

// BehaviorSource supplies behaviour patterns and interest predictions.
type BehaviorSource interface {
	UserBehaviorPattern(ctx context.Context, userID string) (model.BehaviorPattern, error)
	PredictMatchInterest(ctx context.Context, userID, targetID string) (int, error)
}

// Aggregator runs the full match pipeline.
type Aggregator struct {
	profiles ProfileStore
	partners PartnerLister
	behavior BehaviorSource

	ruleBased scoring.RuleBased
	semantic  scoring.Semantic

	weights        Weights
	confidence     ConfidencePolicy
	candidateLimit int
	concurrency    int
	minScore       int
	fetchTimeout   time.Duration
	logger         logger.Logger
}

// NewAggregator creates an Aggregator over the given collaborators.
func NewAggregator(profiles ProfileStore, partners PartnerLister, source BehaviorSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		profiles:       profiles,
		partners:       partners,
		behavior:       source,
		weights:        DefaultWeights(),
		confidence:     DefaultConfidencePolicy(),
		candidateLimit: defaultCandidateLimit,
		concurrency:    defaultConcurrency,
		minScore:       defaultMinScore,
		fetchTimeout:   defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logger.Get().Named("matching")
	}
	return a
}

// Weights returns the active blend.
func (a *Aggregator) Weights() Weights { return a.weights }

// CalculateEnhancedScore scores userA against userB with every signal.
func (a *Aggregator) CalculateEnhancedScore(ctx context.Context, userA, userB string) (model.MatchCandidate, error) {
	pa, pb, err := a.fetchPair(ctx, userA, userB)
	if err != nil {
		return model.MatchCandidate{}, err
	}
	return a.score(ctx, pa, pb), nil
}

// ExplainMatch scores the pair and adds a recommendation verdict.
func (a *Aggregator) ExplainMatch(ctx context.Context, userA, userB string) (model.Explanation, error) {
	mc, err := a.CalculateEnhancedScore(ctx, userA, userB)
	if err != nil {
		return model.Explanation{}, err
	}
	return model.Explanation{MatchCandidate: mc, Recommendation: Recommend(mc.Confidence, mc.TotalScore)}, nil
}

// GetSmartRecommendations scores the candidate pool of userID and returns
// the best limit candidates, ordered by confidence tier then score.
func (a *Aggregator) GetSmartRecommendations(ctx context.Context, userID string, limit int) ([]model.MatchCandidate, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	target, err := a.fetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		return []model.MatchCandidate{}, nil
	}
	pool, err := a.candidatePool(ctx, target)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	scored := make([]model.MatchCandidate, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, c := range pool {
		g.Go(func() error {
			scored[i] = a.score(gctx, target, c)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.MatchCandidate, 0, len(scored))
	for _, mc := range scored {
		if mc.TotalScore > a.minScore {
			out = append(out, mc)
		}
	}
	SortCandidates(out)
	if len(out) > limit {
		out = out[:limit]
	}

	metrics.RecordRecommendations(len(pool))
	a.logger.Debug(ctx, "recommendations computed",
		logger.String("user_id", userID),
		logger.Int("pool", len(pool)),
		logger.Int("returned", len(out)),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

// ScorePair runs a single named strategy on two stored profiles.
func (a *Aggregator) ScorePair(ctx context.Context, userA, userB, strategy string) (model.ScoreResult, error) {
	s, err := scoring.Lookup(strategy)
	if err != nil {
		return model.ScoreResult{}, err
	}
	pa, pb, err := a.fetchPair(ctx, userA, userB)
	if err != nil {
		return model.ScoreResult{}, err
	}
	start := time.Now()
	res := s.Score(pa, pb)
	metrics.RecordScoring(s.Name(), msSince(start))
	return res, nil
}

// SerendipityMatches ranks the candidate pool of userID with the
// serendipity strategy.
func (a *Aggregator) SerendipityMatches(ctx context.Context, userID string) ([]model.ScoredProfile, error) {
	target, err := a.fetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	pool, err := a.candidatePool(ctx, target)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out := scoring.Serendipity{}.FindSerendipitousMatches(target, pool)
	metrics.RecordScoring(scoring.StrategySerendipity, msSince(start))
	return out, nil
}

// SemanticMatches ranks the candidate pool of userID by semantic
// similarity.
func (a *Aggregator) SemanticMatches(ctx context.Context, userID string, n int) ([]model.ScoredProfile, error) {
	target, err := a.fetchProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	pool, err := a.candidatePool(ctx, target)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out := a.semantic.FindSimilarUsers(target, pool, n)
	metrics.RecordScoring(scoring.StrategySemantic, msSince(start))
	return out, nil
}

// score runs the four sub-scores on already fetched profiles. Behavioural
// fetch failures pin the affected sub-score to NeutralScore.
func (a *Aggregator) score(ctx context.Context, pa, pb model.Profile) model.MatchCandidate {
	start := time.Now()

	rule := a.ruleBased.Score(pa, pb)
	sem := a.semantic.Score(pa, pb)

	var behavioral, compatibility int
	var g errgroup.Group
	g.Go(func() error {
		behavioral = a.behavioral(ctx, pa.ID, pb.ID)
		return nil
	})
	g.Go(func() error {
		compatibility = a.compatibility(ctx, pa.ID, pb.ID)
		return nil
	})
	_ = g.Wait()

	bd := model.Breakdown{
		RuleBased:     rule.Score,
		Semantic:      sem.Score,
		Behavioral:    behavioral,
		Compatibility: compatibility,
	}
	total := a.blend(bd)

	reasons := make([]string, 0, len(rule.Reasons)+len(sem.Reasons)+2)
	reasons = append(reasons, rule.Reasons...)
	reasons = append(reasons, sem.Reasons...)
	if behavioral >= strongSignal {
		reasons = append(reasons, "Compatible networking behaviour")
	}
	if compatibility >= strongSignal {
		reasons = append(reasons, "High mutual interest predicted")
	}

	metrics.RecordScoring(strategyEnhanced, msSince(start))
	return model.MatchCandidate{
		UserID:      pa.ID,
		CandidateID: pb.ID,
		TotalScore:  total,
		Breakdown:   bd,
		Reasons:     reasons,
		Confidence:  a.Confidence(bd, total),
	}
}

func (a *Aggregator) behavioral(ctx context.Context, userA, userB string) int {
	fctx, cancel := a.fetchContext(ctx)
	defer cancel()

	var pa, pb model.BehaviorPattern
	g, gctx := errgroup.WithContext(fctx)
	g.Go(func() error {
		var err error
		pa, err = a.behavior.UserBehaviorPattern(gctx, userA)
		return err
	})
	g.Go(func() error {
		var err error
		pb, err = a.behavior.UserBehaviorPattern(gctx, userB)
		return err
	})
	if err := g.Wait(); err != nil {
		a.fallback(ctx, componentBehavioral, userA, userB, err)
		return NeutralScore
	}
	return behavior.Compatibility(pa, pb)
}

func (a *Aggregator) compatibility(ctx context.Context, userA, userB string) int {
	fctx, cancel := a.fetchContext(ctx)
	defer cancel()

	var ab, ba int
	g, gctx := errgroup.WithContext(fctx)
	g.Go(func() error {
		var err error
		ab, err = a.behavior.PredictMatchInterest(gctx, userA, userB)
		return err
	})
	g.Go(func() error {
		var err error
		ba, err = a.behavior.PredictMatchInterest(gctx, userB, userA)
		return err
	})
	if err := g.Wait(); err != nil {
		a.fallback(ctx, componentCompatibility, userA, userB, err)
		return NeutralScore
	}
	return int(math.Round(float64(ab+ba) / 2))
}

func (a *Aggregator) fallback(ctx context.Context, component, userA, userB string, err error) {
	metrics.RecordScoringFallback(component)
	a.logger.Warn(ctx, "sub-score fetch failed, using neutral score",
		logger.String("component", component),
		logger.String("user_a", userA),
		logger.String("user_b", userB),
		logger.Error(err))
}

func (a *Aggregator) blend(bd model.Breakdown) int {
	w := a.weights
	raw := w.RuleBased*float64(bd.RuleBased) +
		w.Semantic*float64(bd.Semantic) +
		w.Behavioral*float64(bd.Behavioral) +
		w.Compatibility*float64(bd.Compatibility)
	return max(0, min(100, int(math.Round(raw))))
}

// Confidence classifies how much the independent scorers agree.
func (a *Aggregator) Confidence(bd model.Breakdown, total int) model.Confidence {
	v := Variance(bd)
	p := a.confidence
	switch {
	case v < p.HighVariance && total > p.HighTotal:
		return model.ConfidenceHigh
	case v < p.MediumVariance && total > p.MediumTotal:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Variance is the largest pairwise gap among the rule-based, semantic and
// behavioural sub-scores.
func Variance(bd model.Breakdown) int {
	lo := min(bd.RuleBased, bd.Semantic, bd.Behavioral)
	hi := max(bd.RuleBased, bd.Semantic, bd.Behavioral)
	return hi - lo
}

// Recommend turns a confidence tier and total into a verdict.
func Recommend(c model.Confidence, total int) string {
	switch {
	case c == model.ConfidenceHigh && total > 70:
		return "highly recommended"
	case c == model.ConfidenceMedium && total > 50:
		return "good potential"
	case total > 30:
		return "moderate"
	default:
		return "low compatibility"
	}
}

// SortCandidates orders by confidence tier, then total score, both
// descending. Candidate id breaks the remaining ties.
func SortCandidates(cs []model.MatchCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if ri, rj := cs[i].Confidence.Rank(), cs[j].Confidence.Rank(); ri != rj {
			return ri > rj
		}
		if cs[i].TotalScore != cs[j].TotalScore {
			return cs[i].TotalScore > cs[j].TotalScore
		}
		return cs[i].CandidateID < cs[j].CandidateID
	})
}

// candidatePool lists active profiles other than target and its accepted
// partners, capped at the candidate limit.
func (a *Aggregator) candidatePool(ctx context.Context, target model.Profile) ([]model.Profile, error) {
	fctx, cancel := a.fetchContext(ctx)
	defer cancel()

	partners, err := a.partners.ListAcceptedMatchPartners(fctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: partners of %s: %w", ErrFetchFailed, target.ID, err)
	}
	exclude := make([]string, 0, len(partners)+1)
	exclude = append(exclude, target.ID)
	for _, p := range partners {
		exclude = append(exclude, p.ID)
	}

	filter := model.ProfileFilter{ActiveOnly: true, Exclude: exclude, Limit: a.candidateLimit}
	listed, err := a.profiles.ListProfiles(fctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: candidate pool of %s: %w", ErrFetchFailed, target.ID, err)
	}

	pool := make([]model.Profile, 0, min(len(listed), a.candidateLimit))
	for _, p := range listed {
		if len(pool) == a.candidateLimit {
			break
		}
		if filter.Matches(p) {
			pool = append(pool, p)
		}
	}
	return pool, nil
}

func (a *Aggregator) fetchPair(ctx context.Context, userA, userB string) (model.Profile, model.Profile, error) {
	var pa, pb model.Profile
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pa, err = a.fetchProfile(gctx, userA)
		return err
	})
	g.Go(func() error {
		var err error
		pb, err = a.fetchProfile(gctx, userB)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Profile{}, model.Profile{}, err
	}
	return pa, pb, nil
}

func (a *Aggregator) fetchProfile(ctx context.Context, id string) (model.Profile, error) {
	fctx, cancel := a.fetchContext(ctx)
	defer cancel()

	p, err := a.profiles.GetProfile(fctx, id)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return model.Profile{}, fmt.Errorf("profile %s: %w", id, err)
	case err != nil:
		return model.Profile{}, fmt.Errorf("%w: profile %s: %w", ErrFetchFailed, id, err)
	}
	return p, nil
}

func (a *Aggregator) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.fetchTimeout)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
