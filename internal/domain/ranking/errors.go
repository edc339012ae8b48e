package ranking

import (
	"errors"

	"github.com/okian/patrolrank/internal/adapters/repository"
)

// Sentinel kinds for ranking errors.
var (
	// ErrNoEntities reports an empty population. Nothing is written.
	ErrNoEntities = errors.New("no officers to rank")
	// ErrNotFound is returned for unknown officer IDs.
	ErrNotFound = repository.ErrNotFound
)
