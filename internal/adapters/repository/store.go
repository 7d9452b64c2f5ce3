// Package repository provides the profile store, interaction log and
// aggregate counters consumed by the scoring core, plus the social-capital
// leaderboard.
package repository

import (
	"context"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Store is the persistence surface of the service. Reads follow the
// collaborator contracts of the scoring core; the writes feed them.
type Store interface {
	PutProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	ListProfiles(ctx context.Context, filter model.ProfileFilter) ([]model.Profile, error)

	// AppendEvent adds e to the log. An event whose id is already stored
	// is ignored.
	AppendEvent(ctx context.Context, e model.InteractionEvent) error
	GetRecentEvents(ctx context.Context, subjectID string, limit int) ([]model.InteractionEvent, error)
	GetEventsBetween(ctx context.Context, a, b string, limit int) ([]model.InteractionEvent, error)

	CountAcceptedMatches(ctx context.Context, userID string) (int, error)
	CountCompletedMeetings(ctx context.Context, userID string) (int, error)
	CountTotalMeetings(ctx context.Context, userID string) (int, error)
	CountMessages(ctx context.Context, userID string) (int, error)
	ListAcceptedMatchPartners(ctx context.Context, userID string) ([]model.Profile, error)

	Close() error
}
