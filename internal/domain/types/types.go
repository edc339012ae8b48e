// Package types contains the read shapes returned by the HTTP API.
package types

import "github.com/okian/patrolrank/internal/domain/model"

// Entry is one row of the top-ranked listing.
type Entry struct {
	Rank        int     `json:"rank"`
	OfficerID   int64   `json:"officer_id"`
	Name        string  `json:"name"`
	BadgeNumber string  `json:"badge_number"`
	Grade       string  `json:"grade"`
	Score       float64 `json:"score"`
}

// EntryFrom flattens a ranked officer into an API entry.
func EntryFrom(r model.RankedOfficer) Entry {
	return Entry{
		Rank:        r.Score.Rank,
		OfficerID:   r.Officer.ID,
		Name:        r.Officer.Name,
		BadgeNumber: r.Officer.BadgeNumber,
		Grade:       r.Officer.Grade,
		Score:       r.Score.Score,
	}
}

// ScoreResult is returned by the single officer scoring endpoint.
type ScoreResult struct {
	Officer model.Officer `json:"copInfo"`
	Score   float64       `json:"score"`
}

// RecomputeResult reports a synchronous ranking pass.
type RecomputeResult struct {
	Message string `json:"message"`
	Ranked  int    `json:"ranked"`
}

// JobAck acknowledges an asynchronous ranking pass.
type JobAck struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}
