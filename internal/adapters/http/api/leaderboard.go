package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

// LeaderboardDependencies reads the social-capital leaderboard.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error)
	Rank(ctx context.Context, userID string) (model.LeaderboardEntry, error)
}

// LeaderboardHandler handles GET /leaderboard and GET /rank/{id}.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
	log      logger.Logger
}

// HandleTop handles GET /leaderboard?limit=N.
func (h *LeaderboardHandler) HandleTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	n, err := queryLimit(r, op, defaultLeaderboardLimit)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded",
			badRequest(op, fmt.Errorf("limit %d exceeds %d", n, h.maxLimit)))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		fail(w, r, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleRank handles GET /rank/{id}.
func (h *LeaderboardHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	entry, err := h.deps.Rank(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, h.log, "api.rank", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
