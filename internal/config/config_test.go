package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/patrolrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.LogThrottle, convey.ShouldEqual, 720*time.Hour)
			convey.So(cfg.ScoringWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DefaultTopLimit, convey.ShouldEqual, 10)
			convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 100)
			convey.So(cfg.SeedCount, convey.ShouldEqual, 10)
			convey.So(cfg.RecomputeInterval, convey.ShouldEqual, 0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }},
		{"unknown driver", func(c *config.Config) { c.StoreDriver = "mongo" }},
		{"sqlite without dsn", func(c *config.Config) { c.StoreDriver = "sqlite" }},
		{"bad log format", func(c *config.Config) { c.LogFormat = "xml" }},
		{"zero throttle", func(c *config.Config) { c.LogThrottle = 0 }},
		{"no workers", func(c *config.Config) { c.ScoringWorkers = 0 }},
		{"no queue", func(c *config.Config) { c.QueueSize = 0 }},
		{"negative interval", func(c *config.Config) { c.RecomputeInterval = -time.Second }},
		{"top limit above max", func(c *config.Config) { c.DefaultTopLimit = 500 }},
		{"no seed count", func(c *config.Config) { c.SeedCount = 0 }},
		{"watch without file", func(c *config.Config) { c.WatchPolicy = true }},
		{"redis lease too short", func(c *config.Config) {
			c.RedisAddr = "localhost:6379"
			c.RedisLockTTL = 10 * time.Millisecond
		}},
	}

	convey.Convey("Given invalid configurations", t, func() {
		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)
			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
