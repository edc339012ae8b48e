package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	service "github.com/okian/patrolrank/internal/app"
	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/internal/domain/types"
	"github.com/okian/patrolrank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// run executes the CLI with args and returns its stdout.
func run(args ...string) (string, error) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	t.Setenv("PATROLRANK_STORE_DRIVER", "sqlite")
	t.Setenv("PATROLRANK_STORE_DSN", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("PATROLRANK_LOG_LEVEL", "error")

	convey.Convey("Given a fresh sqlite store", t, func() {
		convey.Convey("When officers are seeded and ranked", func() {
			out, err := run("seed", "--count", "4")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "created 4 officers")

			out, err = run("recompute")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "officers ranked")

			convey.Convey("Then top lists them as JSON", func() {
				out, err := run("top", "--json", "--limit", "3")
				convey.So(err, convey.ShouldBeNil)
				var entries []types.Entry
				convey.So(json.Unmarshal([]byte(out), &entries), convey.ShouldBeNil)
				convey.So(len(entries), convey.ShouldEqual, 3)
				convey.So(entries[0].Rank, convey.ShouldEqual, 1)
			})

			convey.Convey("And top renders a table", func() {
				out, err := run("top")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Top officers")
				convey.So(out, convey.ShouldContainSubstring, "BADGE")
			})

			convey.Convey("And score returns the officer", func() {
				out, err := run("score", "1", "--json")
				convey.So(err, convey.ShouldBeNil)
				var res types.ScoreResult
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.Officer.ID, convey.ShouldEqual, int64(1))
			})

			convey.Convey("And history shows a rank log", func() {
				out, err := run("history", "1", "--json")
				convey.So(err, convey.ShouldBeNil)
				var logs []model.RankLog
				convey.So(json.Unmarshal([]byte(out), &logs), convey.ShouldBeNil)
				convey.So(len(logs), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When the officer id is invalid", func() {
			_, err := run("score", "abc")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the officer does not exist", func() {
			_, err := run("history", "999")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the routed handler of a started service", t, func() {
		ctx := context.Background()
		svc := service.New()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(ctx, svc)

		convey.Convey("Then API, docs and fallback routes are reachable", func() {
			for path, want := range map[string]int{
				"/readyz":              http.StatusOK,
				"/api/ranking/topCops": http.StatusOK,
				"/api-docs":            http.StatusOK,
				"/openapi.yaml":        http.StatusOK,
				"/api/ranking/999":     http.StatusNotFound,
				"/does-not-exist":      http.StatusNotFound,
				"/seed-data?count=2":   http.StatusCreated,
			} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, want)
			}
		})
	})
}

func TestParseID(t *testing.T) {
	convey.Convey("Given officer id arguments", t, func() {
		id, err := parseID("12")
		convey.So(err, convey.ShouldBeNil)
		convey.So(id, convey.ShouldEqual, int64(12))

		_, err = parseID("0")
		convey.So(err, convey.ShouldNotBeNil)
		_, err = parseID("x")
		convey.So(err, convey.ShouldNotBeNil)
	})
}
