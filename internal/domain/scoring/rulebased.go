package scoring

import (
	"fmt"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Per-category points and caps. The caps sum to 100.
const (
	industryPoints = 20
	industryCap    = 40
	interestPoints = 10
	interestCap    = 30
	goalPoints     = 15
	goalCap        = 30
)

// RuleBased scores structured attribute overlap.
type RuleBased struct{}

// Name implements PairScorer.
func (RuleBased) Name() string { return StrategyRuleBased }

// Score adds min(shared*points, cap) for industries, interests and goals.
func (RuleBased) Score(a, b model.Profile) model.ScoreResult {
	res := model.ScoreResult{Reasons: []string{}}

	categories := []struct {
		a, b          []string
		points, limit int
		one, many     string
	}{
		{a.Industries, b.Industries, industryPoints, industryCap, "industry", "industries"},
		{a.Interests, b.Interests, interestPoints, interestCap, "interest", "interests"},
		{a.Goals, b.Goals, goalPoints, goalCap, "networking goal", "networking goals"},
	}
	for _, c := range categories {
		n := len(shared(c.a, c.b))
		if n == 0 {
			continue
		}
		res.Score += min(n*c.points, c.limit)
		res.Reasons = append(res.Reasons, fmt.Sprintf("%d shared %s", n, plural(n, c.one, c.many)))
	}
	return res
}
