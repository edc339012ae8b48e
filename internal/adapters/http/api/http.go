// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/okian/patrolrank/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RankDependencies
	RecomputeDependencies
	LeaderboardDependencies
	SeedDependencies
	ReadinessChecker
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	rankHandler        *RankHandler
	recomputeHandler   *RecomputeHandler
	leaderboardHandler *LeaderboardHandler
	seedHandler        *SeedHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		rankHandler:        NewRankHandler(deps),
		recomputeHandler:   NewRecomputeHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		seedHandler:        NewSeedHandler(deps),
	}
}

// Register attaches all HTTP routes to mux. Unmatched paths answer with a
// JSON 404.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(pattern, endpoint string, h http.HandlerFunc) {
		mux.Handle(pattern, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}

	route("GET /healthz", "healthz", s.healthHandler.HandleHealth)
	route("GET /readyz", "readyz", s.healthHandler.HandleReady)
	route("GET /stats", "stats", s.statsHandler.HandleStats)

	route("GET /api/ranking/updateRankings", "update_rankings", s.recomputeHandler.HandleUpdateRankings)
	route("POST /api/ranking/updateRankings", "update_rankings", s.recomputeHandler.HandleUpdateRankings)
	route("GET /api/ranking/topCops", "top_cops", s.leaderboardHandler.HandleTopCops)
	route("GET /api/ranking/{id}", "rank", s.rankHandler.HandleGetRank)
	route("GET /api/ranking/{id}/history", "history", s.rankHandler.HandleGetHistory)
	route("GET /seed-data", "seed", s.seedHandler.HandleSeed)

	route("/", "not_found", handleNotFound)
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

// writeInternal logs err with the request ID and answers 500.
func writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	logger.Get().Named("api").Error(r.Context(), "request failed",
		logger.String("path", r.URL.Path),
		logger.String("request_id", RequestIDFrom(r.Context())),
		logger.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", err)
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", nil)
}

// parseID reads the officer id path value.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// parseLimit reads an optional non-negative integer query parameter.
// A missing parameter yields 0, which selects the service default.
func parseLimit(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, ErrInvalidLimit
	}
	return n, nil
}
