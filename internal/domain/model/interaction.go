package model

import (
	"fmt"
	"strings"
	"time"
)

// EventKind enumerates the interactions recorded in the log.
type EventKind string

// Interaction kinds.
const (
	KindProfileView       EventKind = "profile-view"
	KindMessageSent       EventKind = "message-sent"
	KindMatchAccepted     EventKind = "match-accepted"
	KindMatchRejected     EventKind = "match-rejected"
	KindEventJoined       EventKind = "event-joined"
	KindEventCheckedIn    EventKind = "event-checked-in"
	KindMeetingScheduled  EventKind = "meeting-scheduled"
	KindMeetingCompleted  EventKind = "meeting-completed"
	KindSearchPerformed   EventKind = "search-performed"
	KindFeedbackSubmitted EventKind = "feedback-submitted"
)

var eventKinds = map[EventKind]struct{}{ //nolint:gochecknoglobals // closed enumeration
	KindProfileView:       {},
	KindMessageSent:       {},
	KindMatchAccepted:     {},
	KindMatchRejected:     {},
	KindEventJoined:       {},
	KindEventCheckedIn:    {},
	KindMeetingScheduled:  {},
	KindMeetingCompleted:  {},
	KindSearchPerformed:   {},
	KindFeedbackSubmitted: {},
}

// Valid reports whether k is one of the known kinds.
func (k EventKind) Valid() bool {
	_, ok := eventKinds[k]
	return ok
}

// ParseEventKind converts s into an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEventKind, s)
	}
	return k, nil
}

// MetadataCategory is the metadata key holding an event category on
// event-joined interactions.
const MetadataCategory = "category"

// InteractionEvent is one append-only log entry.
type InteractionEvent struct {
	ID        string            `json:"id"`
	SubjectID string            `json:"subject_id"`
	Kind      EventKind         `json:"kind"`
	TargetID  string            `json:"target_id,omitempty"`
	EventID   string            `json:"event_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Validate reports whether e can be appended.
func (e InteractionEvent) Validate() error {
	switch {
	case strings.TrimSpace(e.SubjectID) == "":
		return fmt.Errorf("%w: missing subject_id", ErrInvalidEvent)
	case !e.Kind.Valid():
		return fmt.Errorf("%w: %w: %q", ErrInvalidEvent, ErrInvalidEventKind, e.Kind)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	case e.TargetID != "" && e.TargetID == e.SubjectID:
		return fmt.Errorf("%w: target equals subject", ErrInvalidEvent)
	}
	return nil
}

// Involves reports whether the event links a and b in either direction.
func (e InteractionEvent) Involves(a, b string) bool {
	return (e.SubjectID == a && e.TargetID == b) || (e.SubjectID == b && e.TargetID == a)
}
