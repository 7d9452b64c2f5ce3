// Package api exposes the matchmaker service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/matchmaker/pkg/logger"
)

const (
	defaultRecommendationLimit = 10
	defaultSimilarLimit        = 5
	defaultLeaderboardLimit    = 10
)

// Dependencies is the full set of operations the handlers call.
// *service.Service satisfies it.
type Dependencies interface {
	ProfileDependencies
	InteractionDependencies
	UserDependencies
	MatchDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	profiles     *ProfilesHandler
	interactions *InteractionsHandler
	users        *UsersHandler
	matches      *MatchesHandler
	leaderboard  *LeaderboardHandler
	stats        *StatsHandler
	metrics      http.HandlerFunc
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	cfg := config{
		maxRecommendationLimit: 50,
		maxLeaderboardLimit:    100,
		log:                    logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		profiles:     &ProfilesHandler{deps: deps, log: cfg.log},
		interactions: &InteractionsHandler{deps: deps, log: cfg.log},
		users:        &UsersHandler{deps: deps, maxLimit: cfg.maxRecommendationLimit, log: cfg.log},
		matches:      &MatchesHandler{deps: deps, log: cfg.log},
		leaderboard:  &LeaderboardHandler{deps: deps, maxLimit: cfg.maxLeaderboardLimit, log: cfg.log},
		stats:        NewStatsHandler(stats),
		metrics:      newMetricsHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	routes := []struct {
		pattern  string
		endpoint string
		handler  http.HandlerFunc
	}{
		{"GET /healthz", "healthz", s.metrics},
		{"GET /metrics", "metrics", s.metrics},
		{"GET /stats", "stats", s.stats.HandleStats},
		{"POST /profiles", "profiles", s.profiles.HandlePut},
		{"GET /profiles/{id}", "profile", s.profiles.HandleGet},
		{"POST /interactions", "interactions", s.interactions.HandlePost},
		{"GET /users/{id}/recommendations", "recommendations", s.users.HandleRecommendations},
		{"GET /users/{id}/serendipity", "serendipity", s.users.HandleSerendipity},
		{"GET /users/{id}/similar", "similar", s.users.HandleSimilar},
		{"GET /users/{id}/behavior", "behavior", s.users.HandleBehavior},
		{"GET /users/{id}/social-capital", "social_capital", s.users.HandleSocialCapital},
		{"GET /matches/explain", "explain", s.matches.HandleExplain},
		{"GET /matches/score", "score", s.matches.HandleScore},
		{"GET /matches/predict", "predict", s.matches.HandlePredict},
		{"GET /leaderboard", "leaderboard", s.leaderboard.HandleTop},
		{"GET /rank/{id}", "rank", s.leaderboard.HandleRank},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, MetricsMiddleware(rt.handler, rt.endpoint))
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status it maps to. Server errors are logged;
// client errors are only counted by the middleware.
func fail(w http.ResponseWriter, r *http.Request, log logger.Logger, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}

// queryLimit parses the optional limit parameter. An absent value yields def.
func queryLimit(r *http.Request, op string, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, badRequest(op, fmt.Errorf("limit must be a positive integer, got %q", raw))
	}
	return n, nil
}
