package model

// ScoreResult is the output of a single pair strategy.
type ScoreResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// Confidence summarises agreement between independent scorers.
type Confidence string

// Confidence tiers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers: high > medium > low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// Breakdown holds the named sub-scores of an enhanced match score.
type Breakdown struct {
	RuleBased     int `json:"rule_based"`
	Semantic      int `json:"semantic"`
	Behavioral    int `json:"behavioral"`
	Compatibility int `json:"compatibility"`
}

// MatchCandidate is a scored pairing.
type MatchCandidate struct {
	UserID      string     `json:"user_id"`
	CandidateID string     `json:"candidate_id"`
	TotalScore  int        `json:"total_score"`
	Breakdown   Breakdown  `json:"breakdown"`
	Reasons     []string   `json:"reasons"`
	Confidence  Confidence `json:"confidence"`
}

// Explanation is a MatchCandidate with a human-readable verdict.
type Explanation struct {
	MatchCandidate
	Recommendation string `json:"recommendation"`
}

// ScoredProfile pairs a candidate profile with a strategy result.
type ScoredProfile struct {
	Profile Profile  `json:"profile"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}
