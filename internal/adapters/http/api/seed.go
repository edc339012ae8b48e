package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/internal/seed"
)

// SeedDependencies defines the interface for creating demo officers.
type SeedDependencies interface {
	Seed(ctx context.Context, count int) ([]model.Officer, error)
}

// SeedHandler handles seed requests.
type SeedHandler struct {
	deps SeedDependencies
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(deps SeedDependencies) *SeedHandler {
	return &SeedHandler{deps: deps}
}

type seedResponse struct {
	Message  string          `json:"message"`
	Created  int             `json:"created"`
	Officers []model.Officer `json:"officers"`
}

// HandleSeed handles GET /seed-data?count=N.
func (h *SeedHandler) HandleSeed(w http.ResponseWriter, r *http.Request) {
	count, err := parseLimit(r, "count")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	officers, err := h.deps.Seed(r.Context(), count)
	if err != nil {
		if errors.Is(err, seed.ErrInvalidCount) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, seedResponse{
		Message:  "Dummy data created successfully!",
		Created:  len(officers),
		Officers: officers,
	})
}
