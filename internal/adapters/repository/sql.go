package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/pkg/logger"
	"github.com/okian/patrolrank/pkg/metrics"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// SQLStore implements Store on sqlite or postgres through sqlx.
// Queries are written with ? placeholders and rebound per driver.
type SQLStore struct {
	db           *sqlx.DB
	driver       string
	log          logger.Logger
	maxOpenConns int
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to the database and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		driver:       driver,
		maxOpenConns: 10,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("store")
	}

	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
		if !strings.Contains(dsn, "?") {
			dsn += "?" + sqlitePragmas
		}
		// A single writer connection avoids SQLITE_BUSY under parallel upserts.
		s.maxOpenConns = 1
	case DriverPostgres:
		schema = postgresSchema
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s.db = db
	s.log.Info(ctx, "store opened", logger.String("driver", driver))
	return s, nil
}

func (s *SQLStore) observe(op string, start time.Time, err *error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
	if *err != nil && !errors.Is(*err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

func (s *SQLStore) CreateOfficer(ctx context.Context, o *model.Officer) (err error) {
	defer s.observe("create_officer", time.Now(), &err)

	query := `INSERT INTO officers (name, badge_number, grade, ` + metricColumns + `)
		VALUES (:name, :badge_number, :grade, ` + metricNamedValues + `)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, o)
	if err != nil {
		return fmt.Errorf("create officer %s: %w", o.BadgeNumber, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err = rows.Err(); err == nil {
			err = errors.New("no id returned")
		}
		return fmt.Errorf("create officer %s: %w", o.BadgeNumber, err)
	}
	if err = rows.Scan(&o.ID); err != nil {
		return fmt.Errorf("create officer %s: %w", o.BadgeNumber, err)
	}
	return nil
}

func (s *SQLStore) GetOfficer(ctx context.Context, id int64) (o model.Officer, err error) {
	defer s.observe("get_officer", time.Now(), &err)

	err = s.db.GetContext(ctx, &o, s.db.Rebind(`SELECT * FROM officers WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Officer{}, fmt.Errorf("%w: officer %d", ErrNotFound, id)
	}
	if err != nil {
		return model.Officer{}, fmt.Errorf("get officer %d: %w", id, err)
	}
	return o, nil
}

func (s *SQLStore) ListOfficers(ctx context.Context) (out []model.Officer, err error) {
	defer s.observe("list_officers", time.Now(), &err)

	if err = s.db.SelectContext(ctx, &out, `SELECT * FROM officers ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return out, nil
}

func (s *SQLStore) CountOfficers(ctx context.Context) (n int, err error) {
	defer s.observe("count_officers", time.Now(), &err)

	if err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM officers`); err != nil {
		return 0, fmt.Errorf("count officers: %w", err)
	}
	metrics.UpdateOfficerCount(n)
	return n, nil
}

func (s *SQLStore) GetScore(ctx context.Context, officerID int64) (sc model.Score, err error) {
	defer s.observe("get_score", time.Now(), &err)

	err = s.db.GetContext(ctx, &sc,
		s.db.Rebind(`SELECT officer_id, score, rank, updated_at FROM scores WHERE officer_id = ?`), officerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Score{}, fmt.Errorf("%w: score for officer %d", ErrNotFound, officerID)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("get score %d: %w", officerID, err)
	}
	return sc, nil
}

func (s *SQLStore) SaveScore(ctx context.Context, officerID int64, score float64, at time.Time) (model.Score, error) {
	err := s.exec(ctx, "save_score", `
		INSERT INTO scores (officer_id, score, rank, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(officer_id) DO UPDATE SET
			score = excluded.score,
			updated_at = excluded.updated_at
	`, officerID, score, at.UTC())
	if err != nil {
		return model.Score{}, fmt.Errorf("save score %d: %w", officerID, err)
	}
	return s.GetScore(ctx, officerID)
}

func (s *SQLStore) UpsertScore(ctx context.Context, in model.Score) (model.Score, error) {
	err := s.exec(ctx, "upsert_score", `
		INSERT INTO scores (officer_id, score, rank, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(officer_id) DO UPDATE SET
			score = excluded.score,
			rank = excluded.rank,
			updated_at = excluded.updated_at
	`, in.OfficerID, in.Score, in.Rank, in.UpdatedAt.UTC())
	if err != nil {
		return model.Score{}, fmt.Errorf("upsert score %d: %w", in.OfficerID, err)
	}
	return s.GetScore(ctx, in.OfficerID)
}

func (s *SQLStore) exec(ctx context.Context, op, query string, args ...any) (err error) {
	defer s.observe(op, time.Now(), &err)
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

type rankedRow struct {
	model.Officer
	Score     float64   `db:"score"`
	Rank      int       `db:"rank"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *SQLStore) TopScores(ctx context.Context, n int) (out []model.RankedOfficer, err error) {
	defer s.observe("top_scores", time.Now(), &err)

	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}

	var rows []rankedRow
	err = s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT o.id, o.name, o.badge_number, o.grade, `+metricColumns+`,
			s.score, s.rank, s.updated_at
		FROM scores s
		JOIN officers o ON o.id = s.officer_id
		WHERE s.rank > 0
		ORDER BY s.rank ASC, s.officer_id ASC
		LIMIT ?
	`), n)
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}

	out = make([]model.RankedOfficer, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.RankedOfficer{
			Score: model.Score{
				OfficerID: r.ID,
				Score:     r.Score,
				Rank:      r.Rank,
				UpdatedAt: r.UpdatedAt,
			},
			Officer: r.Officer,
		})
	}
	return out, nil
}

const rankLogColumns = `id, officer_id, rank, score, logged_at, ` + metricColumns

func (s *SQLStore) LatestRankLog(ctx context.Context, officerID int64) (_ *model.RankLog, err error) {
	defer s.observe("latest_rank_log", time.Now(), &err)

	var l model.RankLog
	err = s.db.GetContext(ctx, &l, s.db.Rebind(`
		SELECT `+rankLogColumns+`
		FROM rank_logs
		WHERE officer_id = ?
		ORDER BY logged_at DESC, id DESC
		LIMIT 1
	`), officerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest rank log %d: %w", officerID, err)
	}
	return &l, nil
}

func (s *SQLStore) AppendRankLog(ctx context.Context, l *model.RankLog) (err error) {
	defer s.observe("append_rank_log", time.Now(), &err)

	l.Timestamp = l.Timestamp.UTC()
	query := `INSERT INTO rank_logs (officer_id, rank, score, logged_at, ` + metricColumns + `)
		VALUES (:officer_id, :rank, :score, :logged_at, ` + metricNamedValues + `)
		RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, s.db, query, l)
	if err != nil {
		return fmt.Errorf("append rank log %d: %w", l.OfficerID, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err = rows.Err(); err == nil {
			err = errors.New("no id returned")
		}
		return fmt.Errorf("append rank log %d: %w", l.OfficerID, err)
	}
	if err = rows.Scan(&l.ID); err != nil {
		return fmt.Errorf("append rank log %d: %w", l.OfficerID, err)
	}
	return nil
}

func (s *SQLStore) RankLogs(ctx context.Context, officerID int64, limit int) (out []model.RankLog, err error) {
	defer s.observe("rank_logs", time.Now(), &err)

	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	err = s.db.SelectContext(ctx, &out, s.db.Rebind(`
		SELECT `+rankLogColumns+`
		FROM rank_logs
		WHERE officer_id = ?
		ORDER BY logged_at DESC, id DESC
		LIMIT ?
	`), officerID, limit)
	if err != nil {
		return nil, fmt.Errorf("rank logs %d: %w", officerID, err)
	}
	return out, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
