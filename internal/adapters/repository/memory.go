package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/metrics"
)

// storedEvent keeps arrival order so equal timestamps stay deterministic.
type storedEvent struct {
	seq int64
	model.InteractionEvent
}

// MemoryStore is an in-process Store. Counts are maintained incrementally
// as events are appended.
type MemoryStore struct {
	mu sync.RWMutex

	profiles  map[string]model.Profile
	bySubject map[string][]storedEvent
	ids       map[string]struct{}
	seq       int64

	kindCounts map[string]map[model.EventKind]int
	partners   map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles:   make(map[string]model.Profile),
		bySubject:  make(map[string][]storedEvent),
		ids:        make(map[string]struct{}),
		kindCounts: make(map[string]map[model.EventKind]int),
		partners:   make(map[string]map[string]struct{}),
	}
}

// PutProfile inserts or replaces p.
func (s *MemoryStore) PutProfile(_ context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = cloneProfile(p)
	return nil
}

// GetProfile returns the profile with id.
func (s *MemoryStore) GetProfile(_ context.Context, id string) (model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, model.ErrNotFound)
	}
	return cloneProfile(p), nil
}

// ListProfiles returns matching profiles ordered by id.
func (s *MemoryStore) ListProfiles(_ context.Context, filter model.ProfileFilter) ([]model.Profile, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("list_profiles", msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Profile, 0, len(ids))
	for _, id := range ids {
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		if p := s.profiles[id]; filter.Matches(p) {
			out = append(out, cloneProfile(p))
		}
	}
	return out, nil
}

// AppendEvent validates e and adds it to the log.
func (s *MemoryStore) AppendEvent(_ context.Context, e model.InteractionEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.ids[e.ID]; dup {
		return nil
	}
	s.ids[e.ID] = struct{}{}
	s.seq++
	s.bySubject[e.SubjectID] = append(s.bySubject[e.SubjectID], storedEvent{seq: s.seq, InteractionEvent: e})

	kc, ok := s.kindCounts[e.SubjectID]
	if !ok {
		kc = make(map[model.EventKind]int)
		s.kindCounts[e.SubjectID] = kc
	}
	kc[e.Kind]++

	if e.Kind == model.KindMatchAccepted && e.TargetID != "" {
		s.link(e.SubjectID, e.TargetID)
		s.link(e.TargetID, e.SubjectID)
	}
	return nil
}

func (s *MemoryStore) link(a, b string) {
	set, ok := s.partners[a]
	if !ok {
		set = make(map[string]struct{})
		s.partners[a] = set
	}
	set[b] = struct{}{}
}

// GetRecentEvents returns up to limit events by subjectID, newest-first.
func (s *MemoryStore) GetRecentEvents(_ context.Context, subjectID string, limit int) ([]model.InteractionEvent, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("recent_events", msSince(start)) }()

	s.mu.RLock()
	events := append([]storedEvent(nil), s.bySubject[subjectID]...)
	s.mu.RUnlock()

	return newestFirst(events, limit), nil
}

// GetEventsBetween returns up to limit events linking a and b in either
// direction, newest-first.
func (s *MemoryStore) GetEventsBetween(_ context.Context, a, b string, limit int) ([]model.InteractionEvent, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("events_between", msSince(start)) }()

	s.mu.RLock()
	var events []storedEvent
	for _, e := range s.bySubject[a] {
		if e.TargetID == b {
			events = append(events, e)
		}
	}
	for _, e := range s.bySubject[b] {
		if e.TargetID == a {
			events = append(events, e)
		}
	}
	s.mu.RUnlock()

	return newestFirst(events, limit), nil
}

// CountAcceptedMatches counts distinct accepted-match partners.
func (s *MemoryStore) CountAcceptedMatches(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partners[userID]), nil
}

// CountCompletedMeetings counts meeting-completed events by userID.
func (s *MemoryStore) CountCompletedMeetings(_ context.Context, userID string) (int, error) {
	return s.countKind(userID, model.KindMeetingCompleted), nil
}

// CountTotalMeetings counts meeting-scheduled events by userID.
func (s *MemoryStore) CountTotalMeetings(_ context.Context, userID string) (int, error) {
	return s.countKind(userID, model.KindMeetingScheduled), nil
}

// CountMessages counts message-sent events by userID.
func (s *MemoryStore) CountMessages(_ context.Context, userID string) (int, error) {
	return s.countKind(userID, model.KindMessageSent), nil
}

func (s *MemoryStore) countKind(userID string, kind model.EventKind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kindCounts[userID][kind]
}

// ListAcceptedMatchPartners returns the partner profiles of userID ordered
// by id. Partners without a stored profile are returned with only the id.
func (s *MemoryStore) ListAcceptedMatchPartners(_ context.Context, userID string) ([]model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.partners[userID]))
	for id := range s.partners[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Profile, 0, len(ids))
	for _, id := range ids {
		p, ok := s.profiles[id]
		if !ok {
			p = model.Profile{ID: id}
		}
		out = append(out, cloneProfile(p))
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func newestFirst(events []storedEvent, limit int) []model.InteractionEvent {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].seq > events[j].seq
	})
	if len(events) > limit {
		events = events[:limit]
	}
	out := make([]model.InteractionEvent, len(events))
	for i, e := range events {
		out[i] = e.InteractionEvent
	}
	return out
}

func cloneProfile(p model.Profile) model.Profile {
	p.Industries = append([]string(nil), p.Industries...)
	p.Interests = append([]string(nil), p.Interests...)
	p.Goals = append([]string(nil), p.Goals...)
	return p
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
