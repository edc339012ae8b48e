package scoring

import "errors"

// Sentinel kinds for policy errors.
var (
	ErrEmptyPolicy   = errors.New("scoring policy has no metrics")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrInvalidWeight = errors.New("invalid metric weight")
	ErrInvalidDomain = errors.New("invalid metric domain")
	ErrWeightSum     = errors.New("metric weights must sum to 1")
	ErrLoadPolicy    = errors.New("load scoring policy failed")
)
