package matching_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/okian/matchmaker/internal/domain/matching"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/scoring"
	"github.com/okian/matchmaker/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	logger.Init()
}

var errDown = errors.New("behaviour store down")

type fakeStore struct {
	mu       sync.RWMutex
	profiles map[string]model.Profile
	partners map[string][]string
}

func newFakeStore(ps ...model.Profile) *fakeStore {
	s := &fakeStore{profiles: map[string]model.Profile{}, partners: map[string][]string{}}
	for _, p := range ps {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetProfile(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return model.Profile{}, fmt.Errorf("get %s: %w", id, model.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListProfiles(_ context.Context, f model.ProfileFilter) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []model.Profile
	for _, id := range ids {
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
		if p := s.profiles[id]; f.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAcceptedMatchPartners(_ context.Context, id string) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Profile
	for _, pid := range s.partners[id] {
		out = append(out, s.profiles[pid])
	}
	return out, nil
}

type fakeBehavior struct {
	pattern     model.BehaviorPattern
	predictions map[string]int
	failPattern bool
	failPredict bool
}

func (f *fakeBehavior) UserBehaviorPattern(_ context.Context, id string) (model.BehaviorPattern, error) {
	if f.failPattern {
		return model.BehaviorPattern{}, errDown
	}
	p := f.pattern
	p.UserID = id
	return p, nil
}

func (f *fakeBehavior) PredictMatchInterest(_ context.Context, a, b string) (int, error) {
	if f.failPredict {
		return 0, errDown
	}
	return f.predictions[a+">"+b], nil
}

func steadyBehavior() *fakeBehavior {
	return &fakeBehavior{
		pattern:     model.BehaviorPattern{MatchAcceptanceRate: 0.5, EventParticipationRate: 0.5, ActiveHours: []int{9, 10, 11}},
		predictions: map[string]int{"a>b": 80, "b>a": 60},
	}
}

var (
	alice = model.Profile{
		ID: "a", Active: true,
		Industries: []string{"Technology", "Finance", "Healthcare"},
		Interests:  []string{"AI", "Blockchain", "Web3"},
		Goals:      []string{"Find Business Partners", "Networking", "Learn"},
	}
	bob = model.Profile{
		ID: "b", Active: true,
		Industries: []string{"Technology", "Finance", "Healthcare"},
		Interests:  []string{"AI", "Blockchain", "Web3"},
		Goals:      []string{"Find Business Partners", "Networking", "Learn"},
	}
)

func TestCalculateEnhancedScore(t *testing.T) {
	ctx := context.Background()

	Convey("Given two stored profiles and a working behaviour source", t, func() {
		store := newFakeStore(alice, bob)
		agg := matching.NewAggregator(store, store, steadyBehavior())

		Convey("When scoring the pair", func() {
			mc, err := agg.CalculateEnhancedScore(ctx, "a", "b")

			Convey("Then every sub-score is blended with the default weights", func() {
				So(err, ShouldBeNil)
				So(mc.UserID, ShouldEqual, "a")
				So(mc.CandidateID, ShouldEqual, "b")
				So(mc.Breakdown, ShouldResemble, model.Breakdown{
					RuleBased: 100, Semantic: 20, Behavioral: 100, Compatibility: 70,
				})
				// 35 + 5 + 20 + 14
				So(mc.TotalScore, ShouldEqual, 74)
				So(mc.Confidence, ShouldEqual, model.ConfidenceLow)
				So(mc.Reasons, ShouldContain, "3 shared industries")
				So(mc.Reasons, ShouldContain, "Compatible networking behaviour")
				So(mc.Reasons, ShouldContain, "High mutual interest predicted")
			})

			Convey("Then a second run returns the same candidate", func() {
				again, err := agg.CalculateEnhancedScore(ctx, "a", "b")
				So(err, ShouldBeNil)
				So(again, ShouldResemble, mc)
			})
		})

		Convey("When a profile is unknown", func() {
			_, err := agg.CalculateEnhancedScore(ctx, "a", "ghost")

			Convey("Then not found is propagated", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, matching.ErrFetchFailed), ShouldBeFalse)
			})
		})

		Convey("When custom weights are configured", func() {
			only := matching.NewAggregator(store, store, steadyBehavior(),
				matching.WithWeights(matching.Weights{RuleBased: 1}))
			mc, err := only.CalculateEnhancedScore(ctx, "a", "b")
			So(err, ShouldBeNil)
			So(mc.TotalScore, ShouldEqual, 100)
		})

		Convey("When invalid weights are configured", func() {
			agg := matching.NewAggregator(store, store, steadyBehavior(),
				matching.WithWeights(matching.Weights{RuleBased: -1, Semantic: 2}))
			So(agg.Weights(), ShouldResemble, matching.DefaultWeights())
		})
	})

	Convey("Given a behaviour source that cannot fetch patterns", t, func() {
		store := newFakeStore(alice, bob)
		src := steadyBehavior()
		src.failPattern = true
		agg := matching.NewAggregator(store, store, src)

		Convey("Then the behavioural sub-score is pinned to 50 and scoring succeeds", func() {
			mc, err := agg.CalculateEnhancedScore(ctx, "a", "b")
			So(err, ShouldBeNil)
			So(mc.Breakdown.Behavioral, ShouldEqual, matching.NeutralScore)
			So(mc.Breakdown.Compatibility, ShouldEqual, 70)
			// 35 + 5 + 10 + 14
			So(mc.TotalScore, ShouldEqual, 64)
		})
	})

	Convey("Given a behaviour source that cannot predict interest", t, func() {
		store := newFakeStore(alice, bob)
		src := steadyBehavior()
		src.failPredict = true
		agg := matching.NewAggregator(store, store, src)

		Convey("Then compatibility is pinned to 50", func() {
			mc, err := agg.CalculateEnhancedScore(ctx, "a", "b")
			So(err, ShouldBeNil)
			So(mc.Breakdown.Compatibility, ShouldEqual, matching.NeutralScore)
			So(mc.Breakdown.Behavioral, ShouldEqual, 100)
		})
	})
}

func TestConfidence(t *testing.T) {
	agg := matching.NewAggregator(newFakeStore(), newFakeStore(), steadyBehavior())

	Convey("Given sub-scores that agree closely with a high total", t, func() {
		bd := model.Breakdown{RuleBased: 70, Semantic: 65, Behavioral: 75}
		So(matching.Variance(bd), ShouldEqual, 10)
		So(agg.Confidence(bd, 70), ShouldEqual, model.ConfidenceHigh)
		So(agg.Confidence(bd, 60), ShouldEqual, model.ConfidenceMedium)
	})

	Convey("Given moderate agreement", t, func() {
		bd := model.Breakdown{RuleBased: 50, Semantic: 30, Behavioral: 55}
		So(agg.Confidence(bd, 45), ShouldEqual, model.ConfidenceMedium)
		So(agg.Confidence(bd, 40), ShouldEqual, model.ConfidenceLow)
	})

	Convey("Given a variance exactly on the high threshold", t, func() {
		bd := model.Breakdown{RuleBased: 80, Semantic: 65, Behavioral: 70}
		So(agg.Confidence(bd, 90), ShouldEqual, model.ConfidenceMedium)
	})

	Convey("Given a stricter policy", t, func() {
		strict := matching.NewAggregator(newFakeStore(), newFakeStore(), steadyBehavior(),
			matching.WithConfidencePolicy(matching.ConfidencePolicy{HighVariance: 5, HighTotal: 80, MediumVariance: 10, MediumTotal: 60}))
		bd := model.Breakdown{RuleBased: 70, Semantic: 65, Behavioral: 75}
		So(strict.Confidence(bd, 70), ShouldEqual, model.ConfidenceLow)
	})
}

func TestRecommend(t *testing.T) {
	Convey("Verdicts follow confidence and total thresholds", t, func() {
		So(matching.Recommend(model.ConfidenceHigh, 71), ShouldEqual, "highly recommended")
		So(matching.Recommend(model.ConfidenceHigh, 70), ShouldEqual, "moderate")
		So(matching.Recommend(model.ConfidenceMedium, 51), ShouldEqual, "good potential")
		So(matching.Recommend(model.ConfidenceMedium, 50), ShouldEqual, "moderate")
		So(matching.Recommend(model.ConfidenceLow, 90), ShouldEqual, "moderate")
		So(matching.Recommend(model.ConfidenceLow, 30), ShouldEqual, "low compatibility")
	})
}

func TestExplainMatch(t *testing.T) {
	Convey("Given two stored profiles", t, func() {
		store := newFakeStore(alice, bob)
		agg := matching.NewAggregator(store, store, steadyBehavior())

		ex, err := agg.ExplainMatch(context.Background(), "a", "b")
		So(err, ShouldBeNil)
		So(ex.TotalScore, ShouldEqual, 74)
		So(ex.Recommendation, ShouldEqual, "moderate")
	})
}

func TestGetSmartRecommendations(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user with a partner and a mixed candidate pool", t, func() {
		target := model.Profile{ID: "t", Active: true, Industries: []string{"Tech"}, Interests: []string{"AI", "Web3"}, Goals: []string{"Hire"}}
		store := newFakeStore(
			target,
			model.Profile{ID: "partner", Active: true, Industries: []string{"Tech"}, Interests: []string{"AI"}, Goals: []string{"Hire"}},
			model.Profile{ID: "close", Active: true, Industries: []string{"Tech"}, Interests: []string{"AI", "Web3"}, Goals: []string{"Hire"}},
			model.Profile{ID: "half", Active: true, Industries: []string{"Tech"}, Interests: []string{"Design"}},
			model.Profile{ID: "far", Active: true, Industries: []string{"Farming"}},
			model.Profile{ID: "sleeping", Active: false, Industries: []string{"Tech"}, Interests: []string{"AI", "Web3"}, Goals: []string{"Hire"}},
		)
		store.partners["t"] = []string{"partner"}
		src := steadyBehavior()

		Convey("When requesting recommendations", func() {
			agg := matching.NewAggregator(store, store, src, matching.WithConcurrency(2))
			got, err := agg.GetSmartRecommendations(ctx, "t", 10)
			So(err, ShouldBeNil)

			Convey("Then self, partners and inactive users are excluded", func() {
				ids := make([]string, 0, len(got))
				for _, mc := range got {
					ids = append(ids, mc.CandidateID)
				}
				So(ids, ShouldNotContain, "t")
				So(ids, ShouldNotContain, "partner")
				So(ids, ShouldNotContain, "sleeping")
				So(ids, ShouldContain, "close")
			})

			Convey("Then results are ordered by tier then score", func() {
				for i := 1; i < len(got); i++ {
					prev, cur := got[i-1], got[i]
					So(prev.Confidence.Rank(), ShouldBeGreaterThanOrEqualTo, cur.Confidence.Rank())
					if prev.Confidence == cur.Confidence {
						So(prev.TotalScore, ShouldBeGreaterThanOrEqualTo, cur.TotalScore)
					}
					So(cur.TotalScore, ShouldBeGreaterThan, 30)
				}
			})
		})

		Convey("When the minimum score is raised", func() {
			// close scores 19.25 + 5 + 20 + 0 = 44
			below := matching.NewAggregator(store, store, src, matching.WithMinScore(43))
			got, err := below.GetSmartRecommendations(ctx, "t", 10)
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].TotalScore, ShouldEqual, 44)

			at := matching.NewAggregator(store, store, src, matching.WithMinScore(44))
			got, err = at.GetSmartRecommendations(ctx, "t", 10)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})

		Convey("When the candidate pool is capped", func() {
			agg := matching.NewAggregator(store, store, src, matching.WithCandidateLimit(1))
			got, err := agg.GetSmartRecommendations(ctx, "t", 10)
			So(err, ShouldBeNil)
			So(len(got), ShouldBeLessThanOrEqualTo, 1)
		})

		Convey("When the limit is zero or negative", func() {
			agg := matching.NewAggregator(store, store, src)
			got, err := agg.GetSmartRecommendations(ctx, "t", 0)
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)

			_, err = agg.GetSmartRecommendations(ctx, "t", -1)
			So(errors.Is(err, matching.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When the user is unknown", func() {
			agg := matching.NewAggregator(store, store, src)
			_, err := agg.GetSmartRecommendations(ctx, "ghost", 5)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the behaviour source is down", func() {
			down := steadyBehavior()
			down.failPattern = true
			down.failPredict = true
			agg := matching.NewAggregator(store, store, down)
			got, err := agg.GetSmartRecommendations(ctx, "t", 10)

			Convey("Then recommendations still come back with neutral sub-scores", func() {
				So(err, ShouldBeNil)
				So(got, ShouldNotBeEmpty)
				for _, mc := range got {
					So(mc.Breakdown.Behavioral, ShouldEqual, matching.NeutralScore)
					So(mc.Breakdown.Compatibility, ShouldEqual, matching.NeutralScore)
				}
			})
		})
	})
}

func TestSortCandidates(t *testing.T) {
	Convey("Given candidates in arbitrary order", t, func() {
		cs := []model.MatchCandidate{
			{CandidateID: "x", TotalScore: 90, Confidence: model.ConfidenceLow},
			{CandidateID: "y", TotalScore: 50, Confidence: model.ConfidenceHigh},
			{CandidateID: "z", TotalScore: 70, Confidence: model.ConfidenceMedium},
			{CandidateID: "w", TotalScore: 80, Confidence: model.ConfidenceHigh},
		}
		matching.SortCandidates(cs)

		Convey("Then tier outranks score", func() {
			order := []string{cs[0].CandidateID, cs[1].CandidateID, cs[2].CandidateID, cs[3].CandidateID}
			So(order, ShouldResemble, []string{"w", "y", "z", "x"})
		})
	})
}

func TestSingleStrategies(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(alice, bob,
		model.Profile{ID: "c", Active: true, Industries: []string{"Fashion"}, Interests: []string{"Design"}, Goals: []string{"Learn"}},
	)
	store.partners["a"] = []string{"b"}
	agg := matching.NewAggregator(store, store, steadyBehavior())

	Convey("Given a named strategy", t, func() {
		res, err := agg.ScorePair(ctx, "a", "b", scoring.StrategyRuleBased)
		So(err, ShouldBeNil)
		So(res.Score, ShouldEqual, 100)

		_, err = agg.ScorePair(ctx, "a", "b", "horoscope")
		So(errors.Is(err, scoring.ErrUnknownStrategy), ShouldBeTrue)

		_, err = agg.ScorePair(ctx, "a", "ghost", scoring.StrategySemantic)
		So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
	})

	Convey("Given the serendipity ranker", t, func() {
		got, err := agg.SerendipityMatches(ctx, "a")
		So(err, ShouldBeNil)

		Convey("Then partners are not offered", func() {
			So(got, ShouldHaveLength, 1)
			So(got[0].Profile.ID, ShouldEqual, "c")
			// 40 + 20 + 30
			So(got[0].Score, ShouldEqual, 90)
		})
	})

	Convey("Given the semantic ranker", t, func() {
		got, err := agg.SemanticMatches(ctx, "a", 5)
		So(err, ShouldBeNil)
		So(got, ShouldBeEmpty)
	})
}
