package ranking

import (
	"time"

	"github.com/okian/patrolrank/internal/adapters/lock"
	"github.com/okian/patrolrank/internal/domain/scoring"
	"github.com/okian/patrolrank/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLocker sets the lock that serializes ranking passes.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithThrottleWindow sets how long a rank log suppresses the next one.
func WithThrottleWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.throttle = d
		}
	}
}

// WithWorkers bounds the number of officers scored concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCalculator sets the initial scoring calculator.
func WithCalculator(c *scoring.Calculator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calc.Store(c)
		}
	}
}
