// Package socialcapital computes the composite networking reputation of a
// user from aggregate counts over their history.
package socialcapital

import (
	"math"
	"strings"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Sub-score caps and saturation points.
const (
	componentCap = 25.0

	connectionsSaturation = 50.0
	industriesSaturation  = 10.0

	messagesCap         = 15.0
	messagesSaturation  = 100.0
	meetingsCap         = 10.0
	meetingsSaturation  = 20.0
	newcomerReliability = 10.0
)

type tierThreshold struct {
	min  int
	tier model.RankTier
}

var tiers = []tierThreshold{ //nolint:gochecknoglobals // fixed policy table
	{90, model.TierMaven},
	{75, model.TierInfluencer},
	{60, model.TierConnector},
	{40, model.TierNetworker},
}

type badgeThreshold struct {
	min   int
	badge model.Badge
}

var (
	connectionBadges = []badgeThreshold{ //nolint:gochecknoglobals // fixed policy table
		{1, model.BadgeFirstConnection},
		{10, model.BadgeConnector10},
		{50, model.BadgeConnector50},
		{100, model.BadgeConnector100},
	}
	meetingBadges = []badgeThreshold{ //nolint:gochecknoglobals // fixed policy table
		{5, model.BadgeMeetings5},
		{20, model.BadgeMeetings20},
	}
)

// Counts are the aggregate inputs of a social-capital score.
type Counts struct {
	AcceptedMatches    int
	DistinctIndustries int
	Messages           int
	CompletedMeetings  int
	TotalMeetings      int
}

// Compute derives the social-capital score from counts.
func Compute(userID string, c Counts) model.SocialCapitalScore {
	connections := math.Min(componentCap, float64(c.AcceptedMatches)/connectionsSaturation*componentCap)
	diversity := math.Min(componentCap, float64(c.DistinctIndustries)/industriesSaturation*componentCap)
	engagement := math.Min(messagesCap, float64(c.Messages)/messagesSaturation*messagesCap) +
		math.Min(meetingsCap, float64(c.CompletedMeetings)/meetingsSaturation*meetingsCap)

	reliability := newcomerReliability
	if c.TotalMeetings > 0 {
		reliability = math.Floor(math.Min(1, float64(c.CompletedMeetings)/float64(c.TotalMeetings)) * componentCap)
	}

	total := int(math.Round(connections + diversity + engagement + reliability))
	total = max(0, min(100, total))
	level := total/10 + 1

	return model.SocialCapitalScore{
		UserID:      userID,
		Total:       total,
		Connections: connections,
		Diversity:   diversity,
		Engagement:  engagement,
		Reliability: reliability,
		Rank:        TierFor(total),
		Level:       level,
		NextLevelAt: level * 10,
		Badges:      Badges(c),
	}
}

// TierFor maps a total score to its tier.
func TierFor(total int) model.RankTier {
	for _, t := range tiers {
		if total >= t.min {
			return t.tier
		}
	}
	return model.TierBeginner
}

// Badges returns the milestone badges earned for c.
func Badges(c Counts) []model.Badge {
	out := []model.Badge{}
	for _, b := range connectionBadges {
		if c.AcceptedMatches >= b.min {
			out = append(out, b.badge)
		}
	}
	for _, b := range meetingBadges {
		if c.CompletedMeetings >= b.min {
			out = append(out, b.badge)
		}
	}
	return out
}

// DistinctIndustries counts the case-insensitive distinct industries across
// partners.
func DistinctIndustries(partners []model.Profile) int {
	seen := make(map[string]struct{})
	for _, p := range partners {
		for _, ind := range p.Industries {
			if k := strings.ToLower(strings.TrimSpace(ind)); k != "" {
				seen[k] = struct{}{}
			}
		}
	}
	return len(seen)
}
