package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchmaker/internal/adapters/repository"
	app "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/config"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a config with a custom blend", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.WorkerCount = 3
		cfg.QueueSize = 7
		cfg.WeightRuleBased, cfg.WeightSemantic, cfg.WeightBehavioral, cfg.WeightCompatibility = 1, 0, 0, 0

		svc := app.New(serviceOptions(cfg, repository.NewMemoryStore(), logger.Get())...)

		convey.Convey("Then the service reflects it", func() {
			stats := svc.GetStats()
			convey.So(stats["worker_count"], convey.ShouldEqual, 3)
			convey.So(stats["queue_capacity"], convey.ShouldEqual, 7)
			convey.So(stats["weights"], convey.ShouldResemble, map[string]float64{
				"rule_based": 1, "semantic": 0, "behavioral": 0, "compatibility": 0,
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := app.New()
		convey.So(svc.PutProfile(ctx, model.Profile{ID: "ada", Active: true}), convey.ShouldBeNil)
		h := newHandler(ctx, cfg, svc)

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
			return w
		}

		convey.Convey("Then business, operational and documentation routes are served", func() {
			convey.So(get("/profiles/ada").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/rank/ada").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the configured leaderboard cap applies", func() {
			w := get("/leaderboard?limit=101")
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "limit_exceeded")
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a sqlite backed config on a free port", t, func() {
		cfg := config.New(context.Background())
		cfg.Addr = freeAddr(t)
		cfg.StoreDriver = repository.DriverSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "run.db")
		cfg.WorkerCount = 2

		convey.Convey("When the server runs until cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()

			ok := waitFor(func() bool {
				resp, err := http.Get("http://" + cfg.Addr + "/stats")
				if err != nil {
					return false
				}
				_ = resp.Body.Close()
				return resp.StatusCode == http.StatusOK
			})
			convey.So(ok, convey.ShouldBeTrue)

			resp, err := http.Post("http://"+cfg.Addr+"/interactions", "application/json",
				strings.NewReader(`{"subject_id":"ada","kind":"profile-view","target_id":"bo"}`))
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusAccepted)

			cancel()

			convey.Convey("Then it shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(10 * time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})

	convey.Convey("Given an unknown store driver", t, func() {
		cfg := config.New(context.Background())
		cfg.StoreDriver = "postgres"

		err := run(context.Background(), cfg)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "open store")
	})

	convey.Convey("Given an address already in use", t, func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		convey.So(err, convey.ShouldBeNil)
		defer l.Close()

		cfg := config.New(context.Background())
		cfg.Addr = l.Addr().String()

		err = run(context.Background(), cfg)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "http server")
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
