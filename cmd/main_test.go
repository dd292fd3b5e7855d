package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/datablase/internal/config"
	"github.com/okian/datablase/pkg/logger"
)

const fixture = "../internal/adapters/repository/testdata/league.json"

func TestMainWiring(t *testing.T) {
	convey.Convey("Given a memory store configuration", t, func() {
		t.Setenv("DATABLASE_STORE", "memory")
		t.Setenv("DATABLASE_FIXTURE_PATH", fixture)
		t.Setenv("DATABLASE_ADDR", ":0")
		t.Setenv("DATABLASE_RATE_LIMIT_PER_MINUTE", "0")
		t.Setenv("DATABLASE_METRICS_PREFIX", "blase")
		t.Setenv("DATABLASE_METRICS_BUCKETS_MS", "5,50,500")

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
		convey.So(cfg.MetricsBucketsMs, convey.ShouldResemble, []float64{5, 50, 500})

		log := logger.Discard()

		convey.Convey("When the store, service and server are wired", func() {
			configureMetrics(cfg)
			store, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)

			svc := newService(cfg, store, log)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			srv := newHTTPServer(cfg, svc, log)
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.WriteTimeout, convey.ShouldBeGreaterThan, cfg.RequestTimeout)

			convey.Convey("Then the API and docs are routed", func() {
				for _, path := range []string{"/livez", "/api-docs", "/openapi.yaml", "/v2/seasons"} {
					w := httptest.NewRecorder()
					srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then metric names carry the configured prefix", func() {
				w := httptest.NewRecorder()
				srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "datablase_api_blase_team_resolutions_total")
			})

			convey.Convey("And the season gauge refreshes", func() {
				convey.So(func() { updateSeasonMetrics(ctx, svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the fixture is missing", func() {
			cfg.FixturePath = "does-not-exist.json"
			_, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When the store kind is unknown", func() {
			cfg.Store = "sqlite"
			_, err := openStore(ctx, cfg, log)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		convey.Convey("Then the system updater returns when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("And a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
