// Package service wires the store, ranking engine and async recompute
// pipeline into the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/patrolrank/internal/adapters/lock"
	eventqueue "github.com/okian/patrolrank/internal/adapters/mq/queue"
	"github.com/okian/patrolrank/internal/adapters/mq/worker"
	"github.com/okian/patrolrank/internal/adapters/repository"
	"github.com/okian/patrolrank/internal/config"
	"github.com/okian/patrolrank/internal/domain/dedupe"
	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/internal/domain/ranking"
	"github.com/okian/patrolrank/internal/domain/scoring"
	"github.com/okian/patrolrank/internal/domain/types"
	"github.com/okian/patrolrank/internal/seed"
	"github.com/okian/patrolrank/pkg/logger"
	"github.com/okian/patrolrank/pkg/metrics"
)

const (
	redisLockKey    = "patrolrank:ranking-lock"
	shutdownTimeout = 10 * time.Second

	JobStatusQueued    = "queued"
	JobStatusDuplicate = "duplicate"
)

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	engine  *ranking.Engine
	queue   *eventqueue.InMemoryQueue
	worker  *worker.InMemoryWorker
	deduper dedupe.Deduper
	seeder  *seed.Generator
	redis   *redis.Client

	// Configuration
	storeDriver       string
	storeDSN          string
	redisAddr         string
	redisLockTTL      time.Duration
	policyFile        string
	watchPolicy       bool
	throttle          time.Duration
	scoringWorkers    int
	queueSize         int
	dedupeSize        int
	recomputeInterval time.Duration
	defaultTopLimit   int
	maxTopLimit       int
	seedCount         int
	now               func() time.Time

	// State
	started   bool
	ownsStore bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses an already opened store. The service does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreDriver selects the store the service opens on Start.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.storeDSN = dsn
	}
}

// WithRedisLock serializes ranking passes across replicas through Redis.
func WithRedisLock(addr string, ttl time.Duration) Option {
	return func(s *Service) {
		s.redisAddr = addr
		s.redisLockTTL = ttl
	}
}

// WithPolicyFile loads the scoring policy from path, reloading it on change
// when watch is set.
func WithPolicyFile(path string, watch bool) Option {
	return func(s *Service) {
		s.policyFile = path
		s.watchPolicy = watch
	}
}

// WithThrottleWindow sets the minimum age of the last rank log before a
// new one is written.
func WithThrottleWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.throttle = d
		}
	}
}

// WithScoringWorkers bounds parallel score computation within a pass.
func WithScoringWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.scoringWorkers = n
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecomputeInterval schedules a recompute every d. Zero disables it.
func WithRecomputeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.recomputeInterval = d
		}
	}
}

// WithTopLimits sets the default and maximum size of top and history listings.
func WithTopLimits(defaultLimit, maxLimit int) Option {
	return func(s *Service) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			s.defaultTopLimit = defaultLimit
			s.maxTopLimit = maxLimit
		}
	}
}

// WithSeedCount sets how many officers a seed request creates by default.
func WithSeedCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.seedCount = n
		}
	}
}

// WithClock replaces the time source of the engine and job stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// OptionsFromConfig translates loaded configuration into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	return []Option{
		WithStoreDriver(cfg.StoreDriver, cfg.StoreDSN),
		WithRedisLock(cfg.RedisAddr, cfg.RedisLockTTL),
		WithPolicyFile(cfg.PolicyFile, cfg.WatchPolicy),
		WithThrottleWindow(cfg.LogThrottle),
		WithScoringWorkers(cfg.ScoringWorkers),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithRecomputeInterval(cfg.RecomputeInterval),
		WithTopLimits(cfg.DefaultTopLimit, cfg.MaxTopLimit),
		WithSeedCount(cfg.SeedCount),
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:     repository.DriverMemory,
		throttle:        ranking.DefaultThrottleWindow,
		scoringWorkers:  runtime.NumCPU(),
		queueSize:       64,
		dedupeSize:      10_000,
		defaultTopLimit: ranking.DefaultTopLimit,
		maxTopLimit:     100,
		seedCount:       10,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the recompute worker, the scheduler
// and the policy watcher.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting ranking service...")

	calc, err := s.loadCalculator()
	if err != nil {
		return err
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeDriver, s.storeDSN, repository.WithLogger(s.logger.Named("store")))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}
	s.logger.Info(ctx, "store ready", logger.String("driver", s.storeDriver))

	var locker lock.Locker = lock.NewLocal()
	if s.redisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{Addr: s.redisAddr})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			s.closeResources()
			return fmt.Errorf("connect redis %s: %w", s.redisAddr, err)
		}
		locker = lock.NewRedis(s.redis, redisLockKey, s.redisLockTTL)
		s.logger.Info(ctx, "using redis ranking lock", logger.String("addr", s.redisAddr))
	}

	s.engine = ranking.NewEngine(s.store,
		ranking.WithCalculator(calc),
		ranking.WithLocker(locker),
		ranking.WithThrottleWindow(s.throttle),
		ranking.WithWorkers(s.scoringWorkers),
		ranking.WithClock(s.now),
		ranking.WithLogger(s.logger.Named("ranking")),
	)
	s.seeder = seed.NewGenerator(seed.WithLogger(s.logger.Named("seed")))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s.engine, worker.WithLogger(s.logger.Named("worker")))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Run(runCtx)
	}()

	if s.recomputeInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.schedule(runCtx)
		}()
	}

	if s.watchPolicy && s.policyFile != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := scoring.WatchPolicy(runCtx, s.policyFile, s.logger, s.engine.SetCalculator); err != nil {
				s.logger.Error(runCtx, "policy watcher stopped", logger.Error(err))
			}
		}()
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("scoringWorkers", s.scoringWorkers),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("recomputeInterval", s.recomputeInterval),
	)
	return nil
}

func (s *Service) loadCalculator() (*scoring.Calculator, error) {
	if s.policyFile == "" {
		return scoring.NewCalculator(scoring.DefaultPolicy())
	}
	p, err := scoring.LoadPolicy(s.policyFile)
	if err != nil {
		return nil, err
	}
	return scoring.NewCalculator(p)
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	s.cancel()
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "worker shutdown", logger.Error(err))
	}
	s.wg.Wait()
	_ = s.queue.Close()
	s.closeResources()

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

func (s *Service) closeResources() {
	ctx := context.Background()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn(ctx, "close redis", logger.Error(err))
		}
		s.redis = nil
	}
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
}

// schedule enqueues a recompute on every tick until ctx ends.
func (s *Service) schedule(ctx context.Context) {
	ticker := time.NewTicker(s.recomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job := model.Job{ID: uuid.NewString(), Source: model.JobSourceScheduler, EnqueuedAt: s.now()}
			if !s.queue.Enqueue(ctx, job) {
				s.logger.Warn(ctx, "scheduled recompute dropped, queue full")
			}
		}
	}
}

// running returns the engine and store once the service has started.
func (s *Service) running() (*ranking.Engine, repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.engine, s.store, nil
}

// Score computes and persists one officer's score without re-ranking.
func (s *Service) Score(ctx context.Context, id int64) (types.ScoreResult, error) {
	e, _, err := s.running()
	if err != nil {
		return types.ScoreResult{}, err
	}
	o, score, err := e.ScoreOfficer(ctx, id)
	if err != nil {
		return types.ScoreResult{}, err
	}
	return types.ScoreResult{Officer: o, Score: score}, nil
}

// Recompute runs a ranking pass synchronously.
func (s *Service) Recompute(ctx context.Context) (types.RecomputeResult, error) {
	e, _, err := s.running()
	if err != nil {
		return types.RecomputeResult{}, err
	}
	n, err := e.RecomputeAllRanks(ctx)
	if err != nil {
		return types.RecomputeResult{}, err
	}
	return types.RecomputeResult{Message: "Cop rankings updated successfully", Ranked: n}, nil
}

// EnqueueRecompute queues a ranking pass. Requests sharing a non-empty
// idempotency key are acknowledged with the job created by the first one.
func (s *Service) EnqueueRecompute(ctx context.Context, key string) (types.JobAck, error) {
	if _, _, err := s.running(); err != nil {
		return types.JobAck{}, err
	}

	jobID := uuid.NewString()
	if key != "" {
		if existing, seen := s.deduper.SeenAndRecord(ctx, key, jobID); seen {
			metrics.RecordJobDuplicate()
			s.logger.Debug(ctx, "duplicate recompute request",
				logger.String("key", key), logger.String("job_id", existing))
			return types.JobAck{JobID: existing, Status: JobStatusDuplicate, Duplicate: true}, nil
		}
	}

	job := model.Job{ID: jobID, Source: model.JobSourceAPI, EnqueuedAt: s.now()}
	if !s.queue.Enqueue(ctx, job) {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		return types.JobAck{}, eventqueue.ErrFull
	}
	return types.JobAck{JobID: jobID, Status: JobStatusQueued}, nil
}

// LastJob reports the most recent finished async pass, nil if none ran.
func (s *Service) LastJob() *worker.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.worker == nil {
		return nil
	}
	return s.worker.Last()
}

// clampLimit maps limit onto [1, maxTopLimit], using the default for
// non-positive values.
func (s *Service) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultTopLimit
	case limit > s.maxTopLimit:
		return s.maxTopLimit
	}
	return limit
}

// TopN returns the best ranked officers.
func (s *Service) TopN(ctx context.Context, limit int) ([]types.Entry, error) {
	e, _, err := s.running()
	if err != nil {
		return nil, err
	}
	ranked, err := e.TopRanked(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, err
	}
	entries := make([]types.Entry, len(ranked))
	for i, r := range ranked {
		entries[i] = types.EntryFrom(r)
	}
	return entries, nil
}

// History returns an officer's rank logs, newest first.
func (s *Service) History(ctx context.Context, id int64, limit int) ([]model.RankLog, error) {
	e, _, err := s.running()
	if err != nil {
		return nil, err
	}
	return e.History(ctx, id, s.clampLimit(limit))
}

// Seed creates count random officers, or the configured default when
// count is not positive.
func (s *Service) Seed(ctx context.Context, count int) ([]model.Officer, error) {
	_, store, err := s.running()
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = s.seedCount
	}
	if count > s.maxSeed() {
		return nil, fmt.Errorf("%w: at most %d officers per seed", ErrSeedTooLarge, s.maxSeed())
	}
	return s.seeder.Officers(ctx, store, count)
}

func (s *Service) maxSeed() int { return 100 * s.maxTopLimit }

// Ready checks that the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	_, store, err := s.running()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}
