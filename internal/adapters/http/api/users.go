package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// UserDependencies serves the per-user read models.
type UserDependencies interface {
	GetSmartRecommendations(ctx context.Context, userID string, limit int) ([]model.MatchCandidate, error)
	SerendipityMatches(ctx context.Context, userID string) ([]model.ScoredProfile, error)
	SemanticMatches(ctx context.Context, userID string, n int) ([]model.ScoredProfile, error)
	SimilarUsersByBehavior(ctx context.Context, userID string, limit int) ([]model.SimilarUser, error)
	UserBehaviorPattern(ctx context.Context, userID string) (model.BehaviorPattern, error)
	CalculateEngagementScore(ctx context.Context, userID string) (int, error)
	SocialCapital(ctx context.Context, userID string) (model.SocialCapitalScore, error)
}

// UsersHandler handles the /users/{id}/... routes.
type UsersHandler struct {
	deps     UserDependencies
	maxLimit int
	log      logger.Logger
}

type behaviorResponse struct {
	Pattern         model.BehaviorPattern `json:"pattern"`
	EngagementScore int                   `json:"engagement_score"`
}

// limit reads ?limit= and clamps it to the configured maximum.
func (h *UsersHandler) limit(r *http.Request, op string, def int) (int, error) {
	n, err := queryLimit(r, op, def)
	if err != nil {
		return 0, err
	}
	return min(n, h.maxLimit), nil
}

// HandleRecommendations handles GET /users/{id}/recommendations?limit=N.
func (h *UsersHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommendations"
	n, err := h.limit(r, op, defaultRecommendationLimit)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	recs, err := h.deps.GetSmartRecommendations(r.Context(), r.PathValue("id"), n)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleSerendipity handles GET /users/{id}/serendipity.
func (h *UsersHandler) HandleSerendipity(w http.ResponseWriter, r *http.Request) {
	matches, err := h.deps.SerendipityMatches(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, "api.serendipity", err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// HandleSimilar handles GET /users/{id}/similar?by=semantic|behavior&limit=N.
// Semantic similarity is the default.
func (h *UsersHandler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	const op = "api.similar"
	n, err := h.limit(r, op, defaultSimilarLimit)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	id := r.PathValue("id")

	var result any
	switch by := r.URL.Query().Get("by"); by {
	case "", "semantic":
		result, err = h.deps.SemanticMatches(r.Context(), id, n)
	case "behavior":
		result, err = h.deps.SimilarUsersByBehavior(r.Context(), id, n)
	default:
		err = badRequest(op, fmt.Errorf("by must be semantic or behavior, got %q", by))
	}
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleBehavior handles GET /users/{id}/behavior.
func (h *UsersHandler) HandleBehavior(w http.ResponseWriter, r *http.Request) {
	const op = "api.behavior"
	id := r.PathValue("id")
	pattern, err := h.deps.UserBehaviorPattern(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	engagement, err := h.deps.CalculateEngagementScore(r.Context(), id)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, behaviorResponse{Pattern: pattern, EngagementScore: engagement})
}

// HandleSocialCapital handles GET /users/{id}/social-capital.
func (h *UsersHandler) HandleSocialCapital(w http.ResponseWriter, r *http.Request) {
	sc, err := h.deps.SocialCapital(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, "api.social_capital", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
