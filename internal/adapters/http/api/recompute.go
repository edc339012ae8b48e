package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/patrolrank/internal/adapters/lock"
	"github.com/okian/patrolrank/internal/adapters/mq/queue"
	"github.com/okian/patrolrank/internal/domain/ranking"
	"github.com/okian/patrolrank/internal/domain/types"
)

// IdempotencyKeyHeader makes async recompute requests idempotent.
const IdempotencyKeyHeader = "Idempotency-Key"

// RecomputeDependencies defines the interface for ranking passes.
type RecomputeDependencies interface {
	Recompute(ctx context.Context) (types.RecomputeResult, error)
	EnqueueRecompute(ctx context.Context, key string) (types.JobAck, error)
}

// RecomputeHandler handles ranking pass requests.
type RecomputeHandler struct {
	deps RecomputeDependencies
}

// NewRecomputeHandler creates a new recompute handler.
func NewRecomputeHandler(deps RecomputeDependencies) *RecomputeHandler {
	return &RecomputeHandler{deps: deps}
}

// HandleUpdateRankings handles /api/ranking/updateRankings. The pass runs
// inline unless async=true or an Idempotency-Key header is given, in which
// case it is queued and acknowledged with 202.
func (h *RecomputeHandler) HandleUpdateRankings(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(IdempotencyKeyHeader)
	async := key != ""
	if raw := r.URL.Query().Get("async"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		async = async || v
	}

	if async {
		ack, err := h.deps.EnqueueRecompute(r.Context(), key)
		if err != nil {
			if errors.Is(err, queue.ErrFull) {
				writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
				return
			}
			writeInternal(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, ack)
		return
	}

	res, err := h.deps.Recompute(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, ranking.ErrNoEntities):
		writeError(w, http.StatusNotFound, "no_entities", err)
	case errors.Is(err, lock.ErrNotAcquired):
		writeError(w, http.StatusConflict, "ranking_in_progress", err)
	default:
		writeInternal(w, r, err)
	}
}
