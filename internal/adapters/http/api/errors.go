package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidID    = errors.New("invalid officer id")
	ErrInvalidLimit = errors.New("limit must be a non-negative integer")
	ErrBackpressure = errors.New("recompute queue full")
)
