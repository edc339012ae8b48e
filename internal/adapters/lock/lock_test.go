package lock

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocal(t *testing.T) {
	Convey("Given a local lock", t, func() {
		l := NewLocal()
		ctx := context.Background()

		Convey("When it is acquired", func() {
			release, err := l.Acquire(ctx)
			So(err, ShouldBeNil)

			Convey("Then a second acquire waits until its context ends", func() {
				short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
				defer cancel()
				_, err := l.Acquire(short)
				So(errors.Is(err, ErrNotAcquired), ShouldBeTrue)
			})

			Convey("Then releasing lets the next holder in", func() {
				acquired := make(chan struct{})
				go func() {
					r, err := l.Acquire(ctx)
					if err == nil {
						_ = r(ctx)
						close(acquired)
					}
				}()
				So(release(ctx), ShouldBeNil)
				select {
				case <-acquired:
				case <-time.After(time.Second):
					So("second holder never acquired", ShouldBeEmpty)
				}
			})

			Convey("Then releasing twice fails", func() {
				So(release(ctx), ShouldBeNil)
				So(release(ctx), ShouldEqual, ErrNotHeld)
			})
		})
	})
}

// TestRedis requires a Redis instance on localhost:6379 and is skipped otherwise.
func TestRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer client.Close()

	key := "patrolrank-test-lock-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ctx = context.Background()
	defer client.Del(ctx, key)

	Convey("Given a redis lock", t, func() {
		a := NewRedis(client, key, 5*time.Second)
		b := NewRedis(client, key, 5*time.Second)

		release, err := a.Acquire(ctx)
		So(err, ShouldBeNil)

		Convey("Then another holder is refused without waiting", func() {
			_, err := b.Acquire(ctx)
			So(errors.Is(err, ErrNotAcquired), ShouldBeTrue)
			So(release(ctx), ShouldBeNil)
		})

		Convey("Then after release another holder gets it", func() {
			So(release(ctx), ShouldBeNil)
			r2, err := b.Acquire(ctx)
			So(err, ShouldBeNil)
			So(r2(ctx), ShouldBeNil)
		})

		Convey("Then a holder keeps the lease past its ttl until release", func() {
			So(release(ctx), ShouldBeNil)
			short := NewRedis(client, key, 300*time.Millisecond)
			r, err := short.Acquire(ctx)
			So(err, ShouldBeNil)

			time.Sleep(time.Second)
			_, err = b.Acquire(ctx)
			So(errors.Is(err, ErrNotAcquired), ShouldBeTrue)

			So(r(ctx), ShouldBeNil)
			r2, err := b.Acquire(ctx)
			So(err, ShouldBeNil)
			So(r2(ctx), ShouldBeNil)
		})

		Convey("Then a stale release does not drop someone else's lease", func() {
			So(release(ctx), ShouldBeNil)
			r2, err := b.Acquire(ctx)
			So(err, ShouldBeNil)
			So(errors.Is(release(ctx), ErrNotHeld), ShouldBeTrue)
			So(r2(ctx), ShouldBeNil)
		})
	})
}
