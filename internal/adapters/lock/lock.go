// Package lock provides the global mutex that keeps ranking passes from
// interleaving, either within one process or across replicas via Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sentinel kinds for lock errors.
var (
	ErrNotAcquired = errors.New("lock held by another holder")
	ErrNotHeld     = errors.New("lock no longer held")
)

// Release gives up a held lock.
type Release func(ctx context.Context) error

// Locker hands out an exclusive lock for the duration of a pass.
type Locker interface {
	Acquire(ctx context.Context) (Release, error)
}

// Local is an in-process lock. Acquire waits for the current holder or
// for ctx to end.
type Local struct {
	ch chan struct{}
}

// NewLocal returns an unlocked Local.
func NewLocal() *Local {
	return &Local{ch: make(chan struct{}, 1)}
}

func (l *Local) Acquire(ctx context.Context) (Release, error) {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNotAcquired, ctx.Err())
	}
	released := false
	return func(context.Context) error {
		if released {
			return ErrNotHeld
		}
		released = true
		<-l.ch
		return nil
	}, nil
}

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the lease only when it still carries our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis is a lease held in a Redis key. The lease expires after ttl so a
// crashed holder cannot block other replicas forever. A live holder renews
// it every ttl/3 until release. Acquire does not wait.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedis returns a lock on key with the given lease.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) Acquire(ctx context.Context) (Release, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", r.key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAcquired, r.key)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.renew(token, stop, done)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() {
			close(stop)
			<-done
		})
		n, err := releaseScript.Run(ctx, r.client, []string{r.key}, token).Int()
		if err != nil {
			return fmt.Errorf("release %s: %w", r.key, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrNotHeld, r.key)
		}
		return nil
	}, nil
}

// renew extends the lease until stop closes or the lease is lost.
func (r *Redis) renew(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), max(r.ttl/3, time.Millisecond))
			n, err := extendScript.Run(ctx, r.client, []string{r.key}, token, r.ttl.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				return
			}
		}
	}
}
