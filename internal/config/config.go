// Package config defines service configuration and its loading.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the persistence backend: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// RedisAddr enables the cross-replica ranking lock when set.
	RedisAddr string `koanf:"redis_addr"`

	// RedisLockTTL bounds how long a crashed holder can keep the lock.
	RedisLockTTL time.Duration `koanf:"redis_lock_ttl"`

	// PolicyFile points at a YAML scoring policy. Empty uses the built-in one.
	PolicyFile string `koanf:"policy_file"`

	// WatchPolicy reloads PolicyFile when it changes.
	WatchPolicy bool `koanf:"watch_policy"`

	// LogThrottle is the minimum age of the last rank log before a new one is written.
	LogThrottle time.Duration `koanf:"log_throttle"`

	// ScoringWorkers bounds parallel score computation within a pass.
	ScoringWorkers int `koanf:"scoring_workers"`

	// QueueSize bounds the async recompute queue.
	QueueSize int `koanf:"queue_size"`

	// DedupeSize sets the size of the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// RecomputeInterval schedules periodic passes. Zero disables the scheduler.
	RecomputeInterval time.Duration `koanf:"recompute_interval"`

	// DefaultTopLimit is used when topCops has no limit.
	DefaultTopLimit int `koanf:"default_top_limit"`

	// MaxTopLimit caps topCops and history limits.
	MaxTopLimit int `koanf:"max_top_limit"`

	// SeedCount is the number of officers created by a seed request without count.
	SeedCount int `koanf:"seed_count"`
}

// New returns a Config holding the defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       "memory",
		RedisLockTTL:      time.Minute,
		LogThrottle:       30 * 24 * time.Hour,
		ScoringWorkers:    runtime.NumCPU(),
		QueueSize:         64,
		DedupeSize:        10_000,
		DefaultTopLimit:   10,
		MaxTopLimit:       100,
		SeedCount:         10,
		RecomputeInterval: 0,
	}
}

// minRedisLockTTL keeps lease renewal (every ttl/3) well clear of
// round-trip latency.
const minRedisLockTTL = time.Second

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != "memory" && c.StoreDriver != "sqlite" && c.StoreDriver != "postgres":
		return fmt.Errorf("%w: store_driver %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver != "memory" && c.StoreDSN == "":
		return fmt.Errorf("%w: store_dsn required for %s", ErrInvalidConfig, c.StoreDriver)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.LogThrottle <= 0:
		return fmt.Errorf("%w: log_throttle must be positive", ErrInvalidConfig)
	case c.ScoringWorkers < 1:
		return fmt.Errorf("%w: scoring_workers must be >= 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	case c.RecomputeInterval < 0:
		return fmt.Errorf("%w: recompute_interval must not be negative", ErrInvalidConfig)
	case c.DefaultTopLimit < 1 || c.MaxTopLimit < c.DefaultTopLimit:
		return fmt.Errorf("%w: need 1 <= default_top_limit <= max_top_limit", ErrInvalidConfig)
	case c.SeedCount < 1:
		return fmt.Errorf("%w: seed_count must be >= 1", ErrInvalidConfig)
	case c.RedisAddr != "" && c.RedisLockTTL < minRedisLockTTL:
		return fmt.Errorf("%w: redis_lock_ttl must be at least %s", ErrInvalidConfig, minRedisLockTTL)
	case c.WatchPolicy && c.PolicyFile == "":
		return fmt.Errorf("%w: watch_policy requires policy_file", ErrInvalidConfig)
	}
	return nil
}
