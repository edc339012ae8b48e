package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/internal/domain/ranking"
	"github.com/okian/patrolrank/internal/domain/types"
)

// RankDependencies defines the interface for single officer operations.
type RankDependencies interface {
	Score(ctx context.Context, id int64) (types.ScoreResult, error)
	History(ctx context.Context, id int64, limit int) ([]model.RankLog, error)
}

// RankHandler handles single officer requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /api/ranking/{id}: it scores the officer and
// persists the score without re-ranking.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err)
		return
	}
	res, err := h.deps.Score(r.Context(), id)
	if err != nil {
		if errors.Is(err, ranking.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetHistory handles GET /api/ranking/{id}/history?limit=N.
func (h *RankHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err)
		return
	}
	limit, err := parseLimit(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	logs, err := h.deps.History(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, ranking.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeInternal(w, r, err)
		return
	}
	if logs == nil {
		logs = []model.RankLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
