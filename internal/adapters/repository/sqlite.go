package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
	"github.com/okian/matchmaker/pkg/metrics"
)

//go:embed schema.sql
var schema string

const eventColumns = "id, subject_id, kind, target_id, event_id, ts, metadata"

// acceptedPartnersCTE selects the distinct accepted-match partners of the
// user bound twice as ?.
const acceptedPartnersCTE = `
WITH partners(pid) AS (
    SELECT target_id FROM interactions
     WHERE subject_id = ? AND kind = 'match-accepted' AND target_id <> ''
    UNION
    SELECT subject_id FROM interactions
     WHERE target_id = ? AND kind = 'match-accepted'
)`

// SQLiteStore is a Store backed by a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

// NewSQLiteStore opens (or creates) the database at path in WAL mode and
// applies the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	cfg := sqliteConfig{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(%d)",
		path, cfg.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if cfg.maxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, logger: cfg.logger}
	if s.logger == nil {
		s.logger = logger.Get().Named("sqlite")
	}
	s.logger.Info(ctx, "sqlite store ready", logger.String("path", path))
	return s, nil
}

// PutProfile inserts or replaces p.
func (s *SQLiteStore) PutProfile(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	industries, interests, goals, err := encodeSets(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO profiles (id, name, bio, industries, interests, goals, active)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name, bio = excluded.bio, industries = excluded.industries,
    interests = excluded.interests, goals = excluded.goals, active = excluded.active`,
		p.ID, p.Name, p.Bio, industries, interests, goals, p.Active)
	if err != nil {
		return fmt.Errorf("put profile %q: %w", p.ID, err)
	}
	return nil
}

// GetProfile returns the profile with id.
func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, bio, industries, interests, goals, active FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Profile{}, fmt.Errorf("profile %q: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile %q: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns matching profiles ordered by id.
func (s *SQLiteStore) ListProfiles(ctx context.Context, filter model.ProfileFilter) ([]model.Profile, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("list_profiles", msSince(start)) }()

	var (
		q    strings.Builder
		args []any
	)
	q.WriteString(`SELECT id, name, bio, industries, interests, goals, active FROM profiles WHERE 1 = 1`)
	if filter.ActiveOnly {
		q.WriteString(` AND active = 1`)
	}
	if len(filter.Exclude) > 0 {
		q.WriteString(` AND id NOT IN (?` + strings.Repeat(`, ?`, len(filter.Exclude)-1) + `)`)
		for _, id := range filter.Exclude {
			args = append(args, id)
		}
	}
	q.WriteString(` ORDER BY id`)
	if filter.Limit > 0 {
		q.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendEvent validates e and adds it to the log.
func (s *SQLiteStore) AppendEvent(ctx context.Context, e model.InteractionEvent) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	meta := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO interactions (`+eventColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectID, string(e.Kind), e.TargetID, e.EventID, e.Timestamp.UnixNano(), meta)
	if err != nil {
		return fmt.Errorf("append event %q: %w", e.ID, err)
	}
	return nil
}

// GetRecentEvents returns up to limit events by subjectID, newest-first.
func (s *SQLiteStore) GetRecentEvents(ctx context.Context, subjectID string, limit int) ([]model.InteractionEvent, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("recent_events", msSince(start)) }()

	return s.queryEvents(ctx, `
SELECT `+eventColumns+` FROM interactions
 WHERE subject_id = ?
 ORDER BY ts DESC, seq DESC
 LIMIT ?`, subjectID, limit)
}

// GetEventsBetween returns up to limit events linking a and b in either
// direction, newest-first.
func (s *SQLiteStore) GetEventsBetween(ctx context.Context, a, b string, limit int) ([]model.InteractionEvent, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency("events_between", msSince(start)) }()

	return s.queryEvents(ctx, `
SELECT `+eventColumns+` FROM interactions
 WHERE (subject_id = ? AND target_id = ?) OR (subject_id = ? AND target_id = ?)
 ORDER BY ts DESC, seq DESC
 LIMIT ?`, a, b, b, a, limit)
}

// CountAcceptedMatches counts distinct accepted-match partners.
func (s *SQLiteStore) CountAcceptedMatches(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, acceptedPartnersCTE+` SELECT COUNT(*) FROM partners`, userID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accepted matches of %q: %w", userID, err)
	}
	return n, nil
}

// CountCompletedMeetings counts meeting-completed events by userID.
func (s *SQLiteStore) CountCompletedMeetings(ctx context.Context, userID string) (int, error) {
	return s.countKind(ctx, userID, model.KindMeetingCompleted)
}

// CountTotalMeetings counts meeting-scheduled events by userID.
func (s *SQLiteStore) CountTotalMeetings(ctx context.Context, userID string) (int, error) {
	return s.countKind(ctx, userID, model.KindMeetingScheduled)
}

// CountMessages counts message-sent events by userID.
func (s *SQLiteStore) CountMessages(ctx context.Context, userID string) (int, error) {
	return s.countKind(ctx, userID, model.KindMessageSent)
}

func (s *SQLiteStore) countKind(ctx context.Context, userID string, kind model.EventKind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interactions WHERE subject_id = ? AND kind = ?`, userID, string(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s of %q: %w", kind, userID, err)
	}
	return n, nil
}

// ListAcceptedMatchPartners returns the partner profiles of userID ordered
// by id. Partners without a stored profile are returned with only the id.
func (s *SQLiteStore) ListAcceptedMatchPartners(ctx context.Context, userID string) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, acceptedPartnersCTE+`
SELECT partners.pid,
       COALESCE(p.name, ''), COALESCE(p.bio, ''),
       COALESCE(p.industries, '[]'), COALESCE(p.interests, '[]'), COALESCE(p.goals, '[]'),
       COALESCE(p.active, 0)
  FROM partners LEFT JOIN profiles p ON p.id = partners.pid
 ORDER BY partners.pid`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list partners of %q: %w", userID, err)
	}
	defer rows.Close()

	out := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]model.InteractionEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []model.InteractionEvent{}
	for rows.Next() {
		var (
			e    model.InteractionEvent
			kind string
			ts   int64
			meta string
		)
		if err := rows.Scan(&e.ID, &e.SubjectID, &kind, &e.TargetID, &e.EventID, &ts, &meta); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.Timestamp = time.Unix(0, ts).UTC()
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %q: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(sc scanner) (model.Profile, error) {
	var (
		p                            model.Profile
		industries, interests, goals string
	)
	if err := sc.Scan(&p.ID, &p.Name, &p.Bio, &industries, &interests, &goals, &p.Active); err != nil {
		return model.Profile{}, err
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{industries, &p.Industries}, {interests, &p.Interests}, {goals, &p.Goals}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return model.Profile{}, fmt.Errorf("decode profile %q: %w", p.ID, err)
		}
	}
	return p, nil
}

func encodeSets(p model.Profile) (string, string, string, error) {
	enc := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	industries, err := enc(p.Industries)
	if err != nil {
		return "", "", "", fmt.Errorf("encode industries: %w", err)
	}
	interests, err := enc(p.Interests)
	if err != nil {
		return "", "", "", fmt.Errorf("encode interests: %w", err)
	}
	goals, err := enc(p.Goals)
	if err != nil {
		return "", "", "", fmt.Errorf("encode goals: %w", err)
	}
	return industries, interests, goals, nil
}
