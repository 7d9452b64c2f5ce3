package loadgen

import (
	"errors"
	"fmt"

	"github.com/okian/matchmaker/internal/domain/model"
)

// ErrVerification marks a read model that breaks its ordering or
// exclusion rules.
var ErrVerification = errors.New("verification failed")

// VerifyRecommendations checks that recs for userID never contain the user,
// an accepted partner or an inactive profile, and are ordered by confidence
// tier then score.
func VerifyRecommendations(userID string, recs []model.MatchCandidate, partners, inactive map[string]bool) error {
	for i, r := range recs {
		switch {
		case r.CandidateID == userID:
			return fmt.Errorf("%w: %s is recommended to itself", ErrVerification, userID)
		case partners[r.CandidateID]:
			return fmt.Errorf("%w: %s is recommended existing partner %s", ErrVerification, userID, r.CandidateID)
		case inactive[r.CandidateID]:
			return fmt.Errorf("%w: %s is recommended inactive %s", ErrVerification, userID, r.CandidateID)
		}
		if i == 0 {
			continue
		}
		prev := recs[i-1]
		if prev.Confidence.Rank() < r.Confidence.Rank() ||
			(prev.Confidence == r.Confidence && prev.TotalScore < r.TotalScore) {
			return fmt.Errorf("%w: recommendations of %s out of order at %d", ErrVerification, userID, i)
		}
	}
	return nil
}

// VerifyLeaderboard checks that entries are sorted by score with
// competition ranks: ties share a rank and the next rank skips.
func VerifyLeaderboard(entries []model.LeaderboardEntry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: leaderboard starts at rank %d", ErrVerification, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case prev.Score < e.Score:
			return fmt.Errorf("%w: leaderboard score rises at %d", ErrVerification, i)
		case prev.Score == e.Score && prev.Rank != e.Rank:
			return fmt.Errorf("%w: tied scores with ranks %d and %d", ErrVerification, prev.Rank, e.Rank)
		case prev.Score > e.Score && e.Rank != i+1:
			return fmt.Errorf("%w: rank %d at position %d", ErrVerification, e.Rank, i+1)
		}
	}
	return nil
}
