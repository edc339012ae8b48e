package service

import (
	"errors"
	"fmt"

	"github.com/okian/patrolrank/internal/seed"
)

var (
	// ErrNotStarted is returned by operations called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrSeedTooLarge rejects seed requests above the per-call cap.
	ErrSeedTooLarge = fmt.Errorf("%w: too large", seed.ErrInvalidCount)
)
