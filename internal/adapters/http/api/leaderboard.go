package api

import (
	"context"
	"net/http"

	"github.com/okian/patrolrank/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	TopN(ctx context.Context, n int) ([]types.Entry, error)
}

// LeaderboardHandler handles top ranked requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleTopCops handles GET /api/ranking/topCops?limit=N. A missing or zero
// limit selects the default and large limits are capped.
func (h *LeaderboardHandler) HandleTopCops(w http.ResponseWriter, r *http.Request) {
	n, err := parseLimit(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeInternal(w, r, err)
		return
	}
	if entries == nil {
		entries = []types.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
