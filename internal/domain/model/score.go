package model

import "time"

// Score is the persisted composite score and rank of one officer.
// Rank 0 means the officer has not been included in a ranking pass yet.
type Score struct {
	OfficerID int64     `json:"officer_id" db:"officer_id"`
	Score     float64   `json:"score" db:"score"`
	Rank      int       `json:"rank" db:"rank"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Ranked reports whether the score carries a rank from a completed pass.
func (s Score) Ranked() bool { return s.Rank > 0 }

// RankLog is an immutable rank history entry.
type RankLog struct {
	ID        int64     `json:"id" db:"id"`
	OfficerID int64     `json:"officer_id" db:"officer_id"`
	Rank      int       `json:"rank" db:"rank"`
	Score     float64   `json:"score" db:"score"`
	Timestamp time.Time `json:"timestamp" db:"logged_at"`
	Metrics   `json:"metrics"`
}

// RankedOfficer joins a score with the officer it belongs to.
type RankedOfficer struct {
	Score   Score   `json:"score"`
	Officer Officer `json:"officer"`
}
