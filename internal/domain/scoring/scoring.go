// Package scoring holds the pair-scoring strategies: rule-based attribute
// overlap, TF-IDF semantic similarity and serendipity. Each strategy is an
// independent PairScorer selectable by name.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Strategy names accepted by Lookup.
const (
	StrategyRuleBased   = "rule-based"
	StrategySemantic    = "semantic"
	StrategySerendipity = "serendipity"
)

// maxScore bounds every strategy.
const maxScore = 100

// PairScorer scores two profiles. Implementations are pure: the same
// inputs always produce the same result.
type PairScorer interface {
	Name() string
	Score(a, b model.Profile) model.ScoreResult
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (PairScorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyRuleBased:
		return RuleBased{}, nil
	case StrategySemantic:
		return Semantic{}, nil
	case StrategySerendipity:
		return Serendipity{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Strategies lists the registered strategy names.
func Strategies() []string {
	return []string{StrategyRuleBased, StrategySemantic, StrategySerendipity}
}

// normalize lowercases and trims an attribute value.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizedSet returns the distinct non-empty normalized members of items.
func normalizedSet(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		n := normalize(it)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// shared returns the case-insensitive intersection of a and b, keeping the
// spelling and order of a.
func shared(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, it := range b {
		if n := normalize(it); n != "" {
			inB[n] = struct{}{}
		}
	}
	seen := make(map[string]struct{})
	var out []string
	for _, it := range a {
		n := normalize(it)
		if _, ok := inB[n]; !ok {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, strings.TrimSpace(it))
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// rankScored sorts by score descending, then profile id for a stable order,
// and truncates to limit.
func rankScored(items []model.ScoredProfile, limit int) []model.ScoredProfile {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Profile.ID < items[j].Profile.ID
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
