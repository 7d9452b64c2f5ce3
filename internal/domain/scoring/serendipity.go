package scoring

import (
	"fmt"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Serendipity term values.
const (
	serendipityIndustryMax     = 40
	serendipityIndustryPenalty = 10
	serendipityInterestSweet   = 30
	serendipityInterestNone    = 20
	serendipityInterestPenalty = 5
	serendipityGoalAligned     = 30
	serendipityGoalUnaligned   = 10

	serendipityMinScore = 50
	serendipityLimit    = 5
)

// SerendipityTagline is appended to every serendipitous match.
const SerendipityTagline = "A serendipitous connection outside your usual circle"

// Serendipity rewards low category overlap while asking for some shared
// purpose. It is deliberately the opposite objective of RuleBased.
type Serendipity struct{}

// Name implements PairScorer.
func (Serendipity) Name() string { return StrategySerendipity }

// Score implements PairScorer.
func (Serendipity) Score(a, b model.Profile) model.ScoreResult {
	industries := shared(a.Industries, b.Industries)
	interests := shared(a.Interests, b.Interests)
	goals := shared(a.Goals, b.Goals)

	var industryTerm int
	if len(industries) == 0 {
		industryTerm = serendipityIndustryMax
	} else {
		industryTerm = max(0, serendipityIndustryMax-len(industries)*serendipityIndustryPenalty)
	}

	var interestTerm int
	switch len(interests) {
	case 0:
		interestTerm = serendipityInterestNone
	case 1:
		interestTerm = serendipityInterestSweet
	default:
		interestTerm = max(0, serendipityInterestSweet-len(interests)*serendipityInterestPenalty)
	}

	goalTerm := serendipityGoalUnaligned
	if len(goals) > 0 {
		goalTerm = serendipityGoalAligned
	}

	res := model.ScoreResult{
		Score:   min(maxScore, industryTerm+interestTerm+goalTerm),
		Reasons: []string{},
	}
	if len(industries) == 0 {
		res.Reasons = append(res.Reasons, "Different industries bring a fresh perspective")
	}
	if len(interests) == 1 {
		res.Reasons = append(res.Reasons, fmt.Sprintf("One shared interest to start the conversation: %s", interests[0]))
	}
	return res
}

// FindSerendipitousMatches keeps candidates scoring at least 50, adds the
// tagline, and returns the best five.
func (s Serendipity) FindSerendipitousMatches(target model.Profile, candidates []model.Profile) []model.ScoredProfile {
	out := make([]model.ScoredProfile, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		r := s.Score(target, c)
		if r.Score < serendipityMinScore {
			continue
		}
		out = append(out, model.ScoredProfile{
			Profile: c,
			Score:   r.Score,
			Reasons: append(r.Reasons, SerendipityTagline),
		})
	}
	return rankScored(out, serendipityLimit)
}
