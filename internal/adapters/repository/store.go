// Package repository persists officers, their scores and rank history.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/patrolrank/internal/domain/model"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store provides read/write access to officers, scores and rank logs.
// Every method is a discrete operation; no transaction spans calls.
type Store interface {
	// CreateOfficer inserts o and assigns its ID.
	CreateOfficer(ctx context.Context, o *model.Officer) error
	// GetOfficer returns ErrNotFound if the officer is unknown.
	GetOfficer(ctx context.Context, id int64) (model.Officer, error)
	// ListOfficers returns every officer ordered by ID ascending.
	ListOfficers(ctx context.Context) ([]model.Officer, error)
	// CountOfficers returns the population size.
	CountOfficers(ctx context.Context) (int, error)

	// GetScore returns ErrNotFound if the officer has never been scored.
	GetScore(ctx context.Context, officerID int64) (model.Score, error)
	// SaveScore upserts only the score value. A new record starts at rank 0;
	// an existing record keeps its rank.
	SaveScore(ctx context.Context, officerID int64, score float64, at time.Time) (model.Score, error)
	// UpsertScore creates or replaces both score and rank.
	UpsertScore(ctx context.Context, s model.Score) (model.Score, error)
	// TopScores returns up to n ranked officers ordered by rank ascending.
	// Unranked (rank 0) records are excluded.
	TopScores(ctx context.Context, n int) ([]model.RankedOfficer, error)

	// LatestRankLog returns the most recent log for the officer, or nil.
	LatestRankLog(ctx context.Context, officerID int64) (*model.RankLog, error)
	// AppendRankLog inserts l and assigns its ID.
	AppendRankLog(ctx context.Context, l *model.RankLog) error
	// RankLogs returns up to limit logs, newest first.
	RankLogs(ctx context.Context, officerID int64, limit int) ([]model.RankLog, error)

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying resources.
	Close() error
}

// Open returns the store for driver. dsn is ignored by the memory driver.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, driver, dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}
