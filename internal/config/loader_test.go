package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/patrolrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"PATROLRANK_CONFIG",
	"PATROLRANK_ADDR",
	"PATROLRANK_STORE_DRIVER",
	"PATROLRANK_STORE_DSN",
	"PATROLRANK_QUEUE_SIZE",
	"PATROLRANK_SCORING_WORKERS",
	"PATROLRANK_LOG_THROTTLE",
	"PATROLRANK_RECOMPUTE_INTERVAL",
	"PATROLRANK_WATCH_POLICY",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patrolrank.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.LogThrottle, convey.ShouldEqual, 720*time.Hour)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PATROLRANK_ADDR", ":8080")
			_ = os.Setenv("PATROLRANK_QUEUE_SIZE", "8")
			_ = os.Setenv("PATROLRANK_SCORING_WORKERS", "3")
			_ = os.Setenv("PATROLRANK_LOG_THROTTLE", "24h")
			_ = os.Setenv("PATROLRANK_RECOMPUTE_INTERVAL", "15m")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 8)
				convey.So(cfg.ScoringWorkers, convey.ShouldEqual, 3)
				convey.So(cfg.LogThrottle, convey.ShouldEqual, 24*time.Hour)
				convey.So(cfg.RecomputeInterval, convey.ShouldEqual, 15*time.Minute)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
store_driver: sqlite
store_dsn: /tmp/patrolrank.db
log_format: json
policy_file: /etc/patrolrank/policy.yaml
watch_policy: true
max_top_limit: 50
`)
			_ = os.Setenv("PATROLRANK_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "/tmp/patrolrank.db")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.WatchPolicy, convey.ShouldBeTrue)
				convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 50)
			})

			convey.Convey("And env still wins over the file", func() {
				_ = os.Setenv("PATROLRANK_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file is missing", func() {
			_, err := config.LoadFile(ctx, filepath.Join(t.TempDir(), "nope.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is invalid", func() {
			_ = os.Setenv("PATROLRANK_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
