package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/patrolrank/internal/adapters/repository"
	service "github.com/okian/patrolrank/internal/app"
	"github.com/okian/patrolrank/internal/config"
	"github.com/okian/patrolrank/internal/domain/ranking"
	"github.com/okian/patrolrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then operations before Start are refused", func() {
			_, err := svc.Recompute(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.TopN(ctx, 5)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Ready(ctx), service.ErrNotStarted), ShouldBeTrue)
			So(svc.LastJob(), ShouldBeNil)
		})

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then it is marked as started and ready", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, true)
				So(svc.Ready(ctx), ShouldBeNil)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})

		Convey("When stopping a started service", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats(ctx)["started"], ShouldEqual, false)
			})

			Convey("And stopping twice is safe", func() {
				svc.Stop()
			})
		})
	})
}

func TestService_Ranking(t *testing.T) {
	Convey("Given a started service with small listing limits", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithTopLimits(3, 5), service.WithScoringWorkers(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When recomputing an empty population", func() {
			_, err := svc.Recompute(ctx)

			Convey("Then no entities is reported", func() {
				So(errors.Is(err, ranking.ErrNoEntities), ShouldBeTrue)
			})
		})

		Convey("When officers are seeded and ranked", func() {
			officers, err := svc.Seed(ctx, 8)
			So(err, ShouldBeNil)
			So(len(officers), ShouldEqual, 8)

			res, err := svc.Recompute(ctx)
			So(err, ShouldBeNil)

			Convey("Then every officer is ranked", func() {
				So(res.Ranked, ShouldEqual, 8)
			})

			Convey("And top listings are clamped to the configured limits", func() {
				top, err := svc.TopN(ctx, 0)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 3)

				top, err = svc.TopN(ctx, 50)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 5)
				for i, e := range top {
					So(e.Rank, ShouldEqual, i+1)
					if i > 0 {
						So(e.Score, ShouldBeLessThanOrEqualTo, top[i-1].Score)
					}
				}
			})

			Convey("And each officer has one rank log", func() {
				logs, err := svc.History(ctx, officers[0].ID, 0)
				So(err, ShouldBeNil)
				So(len(logs), ShouldEqual, 1)
			})

			Convey("And stats describe the score distribution", func() {
				stats := svc.GetStats(ctx)
				So(stats["totalOfficers"], ShouldEqual, 8)
				dist, ok := stats["scores"].(service.ScoreDistribution)
				So(ok, ShouldBeTrue)
				So(dist.Count, ShouldEqual, 8)
				So(dist.Min, ShouldBeLessThanOrEqualTo, dist.P50)
				So(dist.P50, ShouldBeLessThanOrEqualTo, dist.Max)
			})
		})

		Convey("When scoring a single officer", func() {
			officers, err := svc.Seed(ctx, 2)
			So(err, ShouldBeNil)

			res, err := svc.Score(ctx, officers[1].ID)

			Convey("Then the officer and score are returned", func() {
				So(err, ShouldBeNil)
				So(res.Officer.ID, ShouldEqual, officers[1].ID)
				So(res.Score, ShouldBeBetweenOrEqual, 0.0, 1.0)
			})

			Convey("And an unknown officer is not found", func() {
				_, err := svc.Score(ctx, 9999)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When seeding without a count", func() {
			officers, err := svc.Seed(ctx, 0)

			Convey("Then the default count is used", func() {
				So(err, ShouldBeNil)
				So(len(officers), ShouldEqual, 10)
			})
		})

		Convey("When seeding far too many officers", func() {
			_, err := svc.Seed(ctx, 1_000_000)

			Convey("Then the request is rejected", func() {
				So(errors.Is(err, service.ErrSeedTooLarge), ShouldBeTrue)
			})
		})
	})
}

func TestService_EnqueueRecompute(t *testing.T) {
	Convey("Given a started service with officers", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		_, err := svc.Seed(ctx, 4)
		So(err, ShouldBeNil)

		Convey("When the same idempotency key is used twice", func() {
			first, err := svc.EnqueueRecompute(ctx, "nightly-1")
			So(err, ShouldBeNil)
			second, err := svc.EnqueueRecompute(ctx, "nightly-1")
			So(err, ShouldBeNil)

			Convey("Then the second request is acknowledged as a duplicate", func() {
				So(first.Status, ShouldEqual, service.JobStatusQueued)
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(second.JobID, ShouldEqual, first.JobID)
			})

			Convey("And the queued pass runs in the background", func() {
				So(waitFor(2*time.Second, func() bool { return svc.LastJob() != nil }), ShouldBeTrue)
				last := svc.LastJob()
				So(last.JobID, ShouldEqual, first.JobID)
				So(last.Ranked, ShouldEqual, 4)
				So(last.Error, ShouldBeEmpty)

				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
			})
		})

		Convey("When requests carry no key", func() {
			a, err := svc.EnqueueRecompute(ctx, "")
			So(err, ShouldBeNil)
			b, err := svc.EnqueueRecompute(ctx, "")
			So(err, ShouldBeNil)

			Convey("Then each gets its own job", func() {
				So(a.JobID, ShouldNotEqual, b.JobID)
				So(b.Duplicate, ShouldBeFalse)
			})
		})
	})
}

func TestService_Scheduler(t *testing.T) {
	Convey("Given a service with a short recompute interval", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithRecomputeInterval(20 * time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		_, err := svc.Seed(ctx, 3)
		So(err, ShouldBeNil)

		Convey("Then passes run without being requested", func() {
			ok := waitFor(2*time.Second, func() bool {
				last := svc.LastJob()
				return last != nil && last.Ranked == 3
			})
			So(ok, ShouldBeTrue)
			So(svc.LastJob().Source, ShouldEqual, "scheduler")
		})
	})
}

func TestService_Policy(t *testing.T) {
	Convey("Given a policy file", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "policy.yaml")

		Convey("When it weights arrests only", func() {
			So(os.WriteFile(path, []byte("metrics:\n  arrests_made: {weight: 1, min: 0, max: 30, invert: false}\n"), 0o600), ShouldBeNil)
			svc := service.New(service.WithPolicyFile(path, false))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			officers, err := svc.Seed(ctx, 1)
			So(err, ShouldBeNil)
			res, err := svc.Score(ctx, officers[0].ID)
			So(err, ShouldBeNil)

			Convey("Then scores follow that policy", func() {
				want := float64(officers[0].ArrestsMade) / 30
				if want > 1 {
					want = 1
				}
				So(res.Score, ShouldAlmostEqual, want, 0.001)
			})
		})

		Convey("When it is invalid", func() {
			So(os.WriteFile(path, []byte("metrics:\n  arrests_made: {weight: 0.5, min: 0, max: 30}\n"), 0o600), ShouldBeNil)
			svc := service.New(service.WithPolicyFile(path, false))

			Convey("Then Start fails", func() {
				So(svc.Start(ctx), ShouldNotBeNil)
			})
		})
	})
}

func TestOptionsFromConfig(t *testing.T) {
	Convey("Given loaded configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.SeedCount = 3
		cfg.StoreDriver = repository.DriverSQLite
		cfg.StoreDSN = filepath.Join(t.TempDir(), "rank.db")

		Convey("When a service is built from it", func() {
			svc := service.New(service.OptionsFromConfig(cfg)...)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the configured store and defaults are used", func() {
				So(svc.GetStats(ctx)["storeDriver"], ShouldEqual, repository.DriverSQLite)
				officers, err := svc.Seed(ctx, 0)
				So(err, ShouldBeNil)
				So(len(officers), ShouldEqual, 3)
			})
		})
	})
}
