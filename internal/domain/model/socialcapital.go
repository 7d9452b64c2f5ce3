package model

// RankTier is the social-capital tier name.
type RankTier string

// Tiers, highest first.
const (
	TierMaven      RankTier = "Maven"
	TierInfluencer RankTier = "Influencer"
	TierConnector  RankTier = "Connector"
	TierNetworker  RankTier = "Networker"
	TierBeginner   RankTier = "Beginner"
)

// Badge is a milestone flag on absolute counts.
type Badge string

// Badges.
const (
	BadgeFirstConnection Badge = "first-connection"
	BadgeConnector10     Badge = "10-connections"
	BadgeConnector50     Badge = "50-connections"
	BadgeConnector100    Badge = "100-connections"
	BadgeMeetings5       Badge = "5-meetings"
	BadgeMeetings20      Badge = "20-meetings"
)

// SocialCapitalScore is the composite reputation of a user.
type SocialCapitalScore struct {
	UserID      string   `json:"user_id"`
	Total       int      `json:"total"`
	Connections float64  `json:"connections"`
	Diversity   float64  `json:"diversity"`
	Engagement  float64  `json:"engagement"`
	Reliability float64  `json:"reliability"`
	Rank        RankTier `json:"rank"`
	Level       int      `json:"level"`
	NextLevelAt int      `json:"next_level_at"`
	Badges      []Badge  `json:"badges"`
}

// LeaderboardEntry is a ranked social-capital row.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Score  int    `json:"score"`
}
