// Package dedupe tracks idempotency keys so a retried request maps onto the
// job it already created.
package dedupe

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
)

const defaultMaxSize = 10000

// Deduper records idempotency keys and the job they produced.
type Deduper interface {
	// SeenAndRecord atomically checks whether key was seen. If it was, the
	// original job ID is returned with seen=true. Otherwise jobID is recorded.
	SeenAndRecord(ctx context.Context, key, jobID string) (existing string, seen bool)

	// Unrecord forgets key so it can be retried, e.g. after the queue
	// rejected the job.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps the most recently used keys in a bounded LRU.
type inMemoryDeduper struct {
	mu    sync.Mutex
	cache *lru.Cache
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	cfg := config{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	// lru treats 0 as unbounded.
	if cfg.maxSize < 0 {
		cfg.maxSize = 0
	}
	return &inMemoryDeduper{cache: lru.New(cfg.maxSize)}
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if v, ok := d.cache.Get(key); ok {
		return v.(string), true
	}
	d.cache.Add(key, jobID)
	return jobID, false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache.Remove(key)
}

// Size returns the current number of tracked keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.cache.Len())
}
