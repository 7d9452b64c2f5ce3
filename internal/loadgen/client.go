package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/matchmaker/internal/domain/model"
)

// Outcome classifies an interaction submission.
type Outcome int

// Submission outcomes.
const (
	OutcomeAccepted Outcome = iota
	OutcomeDuplicate
	OutcomeRejected
	OutcomeFailed
)

// Client talks to the matchmaker HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health succeeds when /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// PutProfile upserts p.
func (c *Client) PutProfile(ctx context.Context, p model.Profile) error {
	return c.call(ctx, http.MethodPost, "/profiles", p, http.StatusOK, nil)
}

// SubmitInteraction posts e and classifies the answer.
func (c *Client) SubmitInteraction(ctx context.Context, e model.InteractionEvent) (Outcome, error) {
	body := map[string]any{
		"interaction_id": e.ID,
		"subject_id":     e.SubjectID,
		"kind":           e.Kind,
		"target_id":      e.TargetID,
		"event_id":       e.EventID,
		"timestamp":      e.Timestamp.Format(time.RFC3339),
		"metadata":       e.Metadata,
	}
	resp, err := c.do(ctx, http.MethodPost, "/interactions", body)
	if err != nil {
		return OutcomeFailed, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return OutcomeAccepted, nil
	case http.StatusOK:
		return OutcomeDuplicate, nil
	case http.StatusTooManyRequests:
		return OutcomeRejected, nil
	default:
		return OutcomeFailed, fmt.Errorf("submit %s: status %d", e.ID, resp.StatusCode)
	}
}

// Recommendations fetches the smart recommendations of userID.
func (c *Client) Recommendations(ctx context.Context, userID string, limit int) ([]model.MatchCandidate, error) {
	var out []model.MatchCandidate
	path := "/users/" + url.PathEscape(userID) + "/recommendations?limit=" + strconv.Itoa(limit)
	return out, c.call(ctx, http.MethodGet, path, nil, http.StatusOK, &out)
}

// Leaderboard fetches the top n entries.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	return out, c.call(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(n), nil, http.StatusOK, &out)
}

// Settled returns the number of interactions the ingest workers are done
// with, successfully or not.
func (c *Client) Settled(ctx context.Context) (int64, error) {
	var stats struct {
		Workers struct {
			Processed int64 `json:"processed"`
			Failed    int64 `json:"failed"`
		} `json:"workers"`
	}
	if err := c.call(ctx, http.MethodGet, "/stats", nil, http.StatusOK, &stats); err != nil {
		return 0, err
	}
	return stats.Workers.Processed + stats.Workers.Failed, nil
}

func (c *Client) call(ctx context.Context, method, path string, in any, want int, out any) error {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
