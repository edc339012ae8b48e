// Package worker runs queued recompute jobs through the ranking engine.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/patrolrank/internal/adapters/mq/queue"
	"github.com/okian/patrolrank/pkg/logger"
	"github.com/okian/patrolrank/pkg/metrics"
)

// Ranker runs one population ranking pass.
type Ranker interface {
	RecomputeAllRanks(ctx context.Context) (int, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes recompute jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight finishes.
	Shutdown(ctx context.Context) error
}

// Result describes the last finished job.
type Result struct {
	JobID      string        `json:"job_id"`
	Source     string        `json:"source"`
	Ranked     int           `json:"ranked"`
	Error      string        `json:"error,omitempty"`
	Took       time.Duration `json:"took"`
	FinishedAt time.Time     `json:"finished_at"`
}

// InMemoryWorker consumes jobs one at a time, so queued passes never overlap.
type InMemoryWorker struct {
	queue  Queue
	ranker Ranker
	name   string

	mu        sync.RWMutex
	last      *Result
	processed int64
	failed    int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, ranker Ranker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		ranker:   ranker,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recompute job failed",
					logger.String("job_id", job.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Last returns the most recent job result, or nil if none has finished.
func (w *InMemoryWorker) Last() *Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return nil
	}
	r := *w.last
	return &r
}

// Counts returns processed and failed job totals.
func (w *InMemoryWorker) Counts() (processed, failed int64) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.processed, w.failed
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	n, err := w.ranker.RecomputeAllRanks(ctx)
	took := time.Since(start)
	metrics.RecordWorkerJobLatency(float64(took.Milliseconds()))

	res := &Result{
		JobID:      job.ID,
		Source:     job.Source,
		Ranked:     n,
		Took:       took,
		FinishedAt: time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}

	w.mu.Lock()
	w.last = res
	w.processed++
	if err != nil {
		w.failed++
	}
	w.mu.Unlock()

	if err != nil {
		metrics.RecordWorkerJobError()
		metrics.RecordErrorByComponent("worker", "recompute_error")
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	w.logger.Debug(ctx, "recompute job done",
		logger.String("job_id", job.ID),
		logger.String("source", job.Source),
		logger.Int("ranked", n),
		logger.Duration("took", took),
	)
	return nil
}
