package model

import "time"

// Job sources.
const (
	JobSourceAPI       = "api"
	JobSourceScheduler = "scheduler"
)

// Job is a queued request to run one population recompute pass.
type Job struct {
	ID         string    // uuid, also used as idempotency fallback
	Source     string    // who asked: api or scheduler
	EnqueuedAt time.Time // when the job entered the queue
}
