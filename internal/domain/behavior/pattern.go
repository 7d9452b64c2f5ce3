// Package behavior derives behaviour patterns from the interaction log and
// scores users against each other on how they act rather than on what their
// profiles say.
package behavior

import (
	"math"
	"sort"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Window sizes and blend constants.
const (
	PatternWindow    = 1000
	PairWindow       = 50
	topHours         = 3
	topCategories    = 5
	recentPairWindow = 10

	viewSaturation    = 50.0
	messageSaturation = 20.0

	engagementViews         = 0.10
	engagementMessages      = 0.25
	engagementAcceptance    = 0.20
	engagementParticipation = 0.30
	engagementConsistency   = 0.15

	similarityCategories = 40.0
	similarityHours      = 30.0
	similarityRates      = 30.0

	compatibilityAcceptance    = 40.0
	compatibilityParticipation = 30.0
	compatibilityHours         = 30.0

	recentBlend  = 0.7
	overallBlend = 0.3
)

// DerivePattern builds a BehaviorPattern from events, which are expected
// newest-first. Only events whose subject is userID are counted.
func DerivePattern(userID string, events []model.InteractionEvent) model.BehaviorPattern {
	p := model.BehaviorPattern{
		UserID:        userID,
		ActiveHours:   []int{},
		TopCategories: []string{},
	}

	var accepted, rejected, joined, checkedIn int
	hours := newCounter[int]()
	categories := newCounter[string]()

	for _, e := range events {
		if e.SubjectID != userID {
			continue
		}
		hours.add(e.Timestamp.UTC().Hour())

		switch e.Kind {
		case model.KindProfileView:
			p.ProfileViews++
		case model.KindMessageSent:
			p.MessagesSent++
		case model.KindMatchAccepted:
			accepted++
		case model.KindMatchRejected:
			rejected++
		case model.KindEventJoined:
			joined++
			if c := e.Metadata[model.MetadataCategory]; c != "" {
				categories.add(c)
			}
		case model.KindEventCheckedIn:
			checkedIn++
		}
	}

	p.MatchAcceptanceRate = ratio(accepted, accepted+rejected)
	p.EventParticipationRate = ratio(checkedIn, joined)
	p.ActiveHours = hours.top(topHours)
	p.TopCategories = categories.top(topCategories)
	return p
}

// EngagementScore blends activity volume, acceptance, participation and
// hour consistency into a 0..100 score.
func EngagementScore(p model.BehaviorPattern) int {
	views := math.Min(float64(p.ProfileViews)/viewSaturation, 1) * 100
	messages := math.Min(float64(p.MessagesSent)/messageSaturation, 1) * 100

	consistency := 100.0
	if n := len(p.ActiveHours); n < topHours {
		consistency = float64(n) / topHours * 100
	}

	score := views*engagementViews +
		messages*engagementMessages +
		p.MatchAcceptanceRate*100*engagementAcceptance +
		p.EventParticipationRate*100*engagementParticipation +
		consistency*engagementConsistency
	return int(math.Round(score))
}

// Similarity compares two patterns on shared categories, shared active
// hours and the combined drift of their rates.
func Similarity(a, b model.BehaviorPattern) int {
	catOverlap := float64(overlap(a.TopCategories, b.TopCategories))
	hourOverlap := float64(overlap(a.ActiveHours, b.ActiveHours))
	drift := math.Abs((a.MatchAcceptanceRate-b.MatchAcceptanceRate)+(a.EventParticipationRate-b.EventParticipationRate)) / 2

	score := catOverlap/topCategories*similarityCategories +
		hourOverlap/topHours*similarityHours +
		(1-drift)*similarityRates
	return int(math.Round(score))
}

// Compatibility scores how well two patterns fit: 40 points for close
// acceptance rates, 30 for close participation rates and 30 for the
// fraction of the top active hours they share.
func Compatibility(a, b model.BehaviorPattern) int {
	acceptance := 1 - math.Abs(a.MatchAcceptanceRate-b.MatchAcceptanceRate)
	participation := 1 - math.Abs(a.EventParticipationRate-b.EventParticipationRate)
	hours := float64(overlap(a.ActiveHours, b.ActiveHours)) / topHours

	score := acceptance*compatibilityAcceptance +
		participation*compatibilityParticipation +
		hours*compatibilityHours
	return clamp(int(math.Round(score)))
}

// PredictFromHistory estimates interest from the events between a pair,
// newest-first. Without history it falls back to the acceptance rate.
func PredictFromHistory(events []model.InteractionEvent, fallbackRate float64) int {
	if len(events) == 0 {
		return clamp(int(math.Round(fallbackRate * 100)))
	}

	overall := positiveRatio(events)
	recent := positiveRatio(events[:min(recentPairWindow, len(events))])

	score := (recentBlend*recent + overallBlend*overall) * 100
	return clamp(int(math.Round(score)))
}

// IsPositive reports whether kind signals interest between two users.
func IsPositive(kind model.EventKind) bool {
	switch kind {
	case model.KindMatchAccepted, model.KindMessageSent, model.KindProfileView:
		return true
	}
	return false
}

// IsNegative reports whether kind signals disinterest.
func IsNegative(kind model.EventKind) bool {
	return kind == model.KindMatchRejected
}

// CountSince returns how many events happened at or after since.
func CountSince(events []model.InteractionEvent, since time.Time) int {
	n := 0
	for _, e := range events {
		if !e.Timestamp.Before(since) {
			n++
		}
	}
	return n
}

func positiveRatio(events []model.InteractionEvent) float64 {
	pos := 0
	for _, e := range events {
		if IsPositive(e.Kind) {
			pos++
		}
	}
	return ratio(pos, len(events))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func clamp(v int) int {
	return max(0, min(100, v))
}

func overlap[T comparable](a, b []T) int {
	in := make(map[T]struct{}, len(b))
	for _, v := range b {
		in[v] = struct{}{}
	}
	n := 0
	for _, v := range a {
		if _, ok := in[v]; ok {
			n++
			delete(in, v)
		}
	}
	return n
}

// counter tallies keys and remembers first-appearance order for ties.
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

// top returns up to n keys by count descending, ties in first-seen order.
func (c *counter[K]) top(n int) []K {
	keys := make([]K, len(c.order))
	copy(keys, c.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
