// Package ranking scores the officer population, assigns dense ranks and
// keeps a throttled rank history.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/okian/patrolrank/internal/adapters/lock"
	"github.com/okian/patrolrank/internal/adapters/repository"
	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/internal/domain/scoring"
	"github.com/okian/patrolrank/pkg/logger"
	"github.com/okian/patrolrank/pkg/metrics"
)

// Engine defaults.
const (
	DefaultThrottleWindow = 30 * 24 * time.Hour
	DefaultTopLimit       = 10
	DefaultHistoryLimit   = 10
)

// Engine runs single-officer scoring and population ranking passes
// against a Store.
type Engine struct {
	store    repository.Store
	calc     atomic.Pointer[scoring.Calculator]
	locker   lock.Locker
	log      logger.Logger
	now      func() time.Time
	throttle time.Duration
	workers  int
}

// NewEngine returns an engine on the default policy unless overridden.
func NewEngine(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		locker:   lock.NewLocal(),
		now:      time.Now,
		throttle: DefaultThrottleWindow,
		workers:  runtime.NumCPU(),
	}
	e.calc.Store(scoring.MustCalculator(scoring.DefaultPolicy()))
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("ranking")
	}
	return e
}

// Calculator returns the active calculator.
func (e *Engine) Calculator() *scoring.Calculator { return e.calc.Load() }

// SetCalculator swaps the scoring policy. Passes already running keep the
// calculator they started with.
func (e *Engine) SetCalculator(c *scoring.Calculator) {
	if c != nil {
		e.calc.Store(c)
	}
}

// ScoreOfficer fetches one officer, computes and persists its score.
// The stored rank is left untouched.
func (e *Engine) ScoreOfficer(ctx context.Context, id int64) (model.Officer, float64, error) {
	o, err := e.store.GetOfficer(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordSingleScore(metrics.OutcomeNotFound)
		} else {
			metrics.RecordSingleScore(metrics.OutcomeError)
		}
		return model.Officer{}, 0, err
	}

	score := e.calc.Load().Compute(o.Metrics)
	if _, err := e.store.SaveScore(ctx, id, score, e.now()); err != nil {
		metrics.RecordSingleScore(metrics.OutcomeError)
		return model.Officer{}, 0, fmt.Errorf("persist score for officer %d: %w", id, err)
	}

	metrics.RecordSingleScore(metrics.OutcomeSuccess)
	return o, score, nil
}

// ScoreAndPersist is ScoreOfficer returning only the score.
func (e *Engine) ScoreAndPersist(ctx context.Context, id int64) (float64, error) {
	_, score, err := e.ScoreOfficer(ctx, id)
	return score, err
}

// RecomputeAllRanks scores every officer, ranks them by score descending
// and persists score and rank for each. A rank log is appended only when
// the officer has no log newer than the throttle window. It returns the
// number of officers ranked.
func (e *Engine) RecomputeAllRanks(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() {
		outcome := metrics.OutcomeSuccess
		switch {
		case errors.Is(err, ErrNoEntities):
			outcome = metrics.OutcomeNoEntities
		case err != nil:
			outcome = metrics.OutcomeError
		}
		metrics.RecordRankingPass(outcome, float64(time.Since(start).Milliseconds()))
	}()

	release, err := e.locker.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire ranking lock: %w", err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			e.log.Warn(ctx, "release ranking lock", logger.Error(rerr))
		}
	}()

	officers, err := e.store.ListOfficers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list officers: %w", err)
	}
	if len(officers) == 0 {
		e.log.Warn(ctx, "ranking pass skipped, no officers")
		return 0, ErrNoEntities
	}

	now := e.now()
	scores, err := e.scoreAll(ctx, officers, now)
	if err != nil {
		return 0, err
	}

	order := rankOrder(officers, scores)

	cutoff := now.Add(-e.throttle)
	logged := 0
	for i, idx := range order {
		o := officers[idx]
		sc := model.Score{OfficerID: o.ID, Score: scores[idx], Rank: i + 1, UpdatedAt: now}

		wrote, err := e.logRank(ctx, o, sc, cutoff)
		if err != nil {
			return i, err
		}
		if wrote {
			logged++
		}

		if _, err := e.store.UpsertScore(ctx, sc); err != nil {
			return i, fmt.Errorf("upsert rank for officer %d: %w", o.ID, err)
		}
	}

	metrics.UpdateOfficersRanked(len(order))
	e.log.Info(ctx, "ranking pass complete",
		logger.Int("officers", len(order)),
		logger.Int("rank_logs_written", logged),
		logger.Duration("took", time.Since(start)),
	)
	return len(order), nil
}

// scoreAll computes and saves every officer's score concurrently. The
// result is indexed like officers.
func (e *Engine) scoreAll(ctx context.Context, officers []model.Officer, now time.Time) ([]float64, error) {
	calc := e.calc.Load()
	scores := make([]float64, len(officers))

	p := pool.New().WithMaxGoroutines(e.workers).WithContext(ctx).WithCancelOnError()
	for i := range officers {
		p.Go(func(ctx context.Context) error {
			s := calc.Compute(officers[i].Metrics)
			if _, err := e.store.SaveScore(ctx, officers[i].ID, s, now); err != nil {
				return fmt.Errorf("save score for officer %d: %w", officers[i].ID, err)
			}
			scores[i] = s
			metrics.RecordScoreComputed()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// rankOrder returns indices into officers sorted by score descending.
// Equal scores are ordered by officer ID so repeated passes agree.
func rankOrder(officers []model.Officer, scores []float64) []int {
	order := make([]int, len(officers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := scores[order[a]], scores[order[b]]
		if sa != sb {
			return sa > sb
		}
		return officers[order[a]].ID < officers[order[b]].ID
	})
	return order
}

// logRank appends a rank log unless one newer than cutoff exists.
// A log stamped exactly at cutoff does not suppress a new one.
func (e *Engine) logRank(ctx context.Context, o model.Officer, sc model.Score, cutoff time.Time) (bool, error) {
	latest, err := e.store.LatestRankLog(ctx, o.ID)
	if err != nil {
		return false, fmt.Errorf("latest rank log for officer %d: %w", o.ID, err)
	}
	if latest != nil && latest.Timestamp.After(cutoff) {
		metrics.RecordRankLogThrottled()
		return false, nil
	}

	entry := &model.RankLog{
		OfficerID: o.ID,
		Rank:      sc.Rank,
		Score:     sc.Score,
		Timestamp: sc.UpdatedAt,
		Metrics:   o.Metrics,
	}
	if err := e.store.AppendRankLog(ctx, entry); err != nil {
		return false, fmt.Errorf("append rank log for officer %d: %w", o.ID, err)
	}
	metrics.RecordRankLogWritten()
	return true, nil
}

// TopRanked returns up to n ranked officers by rank ascending.
// n <= 0 selects DefaultTopLimit.
func (e *Engine) TopRanked(ctx context.Context, n int) ([]model.RankedOfficer, error) {
	if n <= 0 {
		n = DefaultTopLimit
	}
	return e.store.TopScores(ctx, n)
}

// History returns the officer's rank logs, newest first.
// limit <= 0 selects DefaultHistoryLimit.
func (e *Engine) History(ctx context.Context, id int64, limit int) ([]model.RankLog, error) {
	if _, err := e.store.GetOfficer(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return e.store.RankLogs(ctx, id, limit)
}
