package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// MatchDependencies scores an explicit pair of users.
type MatchDependencies interface {
	ExplainMatch(ctx context.Context, userA, userB string) (model.Explanation, error)
	ScorePair(ctx context.Context, userA, userB, strategy string) (model.ScoreResult, error)
	PredictMatchInterest(ctx context.Context, userID, targetID string) (int, error)
}

// MatchesHandler handles the /matches routes. Every route takes the pair
// as ?a=&b=.
type MatchesHandler struct {
	deps MatchDependencies
	log  logger.Logger
}

type predictResponse struct {
	UserID   string `json:"user_id"`
	TargetID string `json:"target_id"`
	Interest int    `json:"interest"`
}

func pair(r *http.Request, op string) (string, string, error) {
	q := r.URL.Query()
	a, b := q.Get("a"), q.Get("b")
	if a == "" || b == "" {
		return "", "", badRequest(op, errors.New("both a and b are required"))
	}
	return a, b, nil
}

// HandleExplain handles GET /matches/explain?a=&b=.
func (h *MatchesHandler) HandleExplain(w http.ResponseWriter, r *http.Request) {
	const op = "api.explain"
	a, b, err := pair(r, op)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	exp, err := h.deps.ExplainMatch(r.Context(), a, b)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

// HandleScore handles GET /matches/score?a=&b=&strategy=name.
func (h *MatchesHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	a, b, err := pair(r, op)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	res, err := h.deps.ScorePair(r.Context(), a, b, r.URL.Query().Get("strategy"))
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandlePredict handles GET /matches/predict?a=&b=, the predicted interest
// of a in b.
func (h *MatchesHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	a, b, err := pair(r, op)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	interest, err := h.deps.PredictMatchInterest(r.Context(), a, b)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{UserID: a, TargetID: b, Interest: interest})
}
