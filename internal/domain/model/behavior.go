package model

// BehaviorPattern is derived from a user's recent interaction window.
type BehaviorPattern struct {
	UserID                 string   `json:"user_id"`
	ProfileViews           int      `json:"profile_views"`
	MessagesSent           int      `json:"messages_sent"`
	MatchAcceptanceRate    float64  `json:"match_acceptance_rate"`
	EventParticipationRate float64  `json:"event_participation_rate"`
	ActiveHours            []int    `json:"active_hours"`
	TopCategories          []string `json:"top_categories"`
}

// SimilarUser is a behaviour-similarity hit.
type SimilarUser struct {
	UserID     string `json:"user_id"`
	Similarity int    `json:"similarity"`
}
