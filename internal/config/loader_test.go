package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/datablase/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"DATABLASE_CONFIG",
	"DATABLASE_ADDR",
	"DATABLASE_STORE",
	"DATABLASE_FIXTURE_PATH",
	"DATABLASE_MAX_LIMIT",
	"DATABLASE_REQUEST_TIMEOUT",
	"DATABLASE_REGULAR_SEASON_PHASE_IDS",
	"DATABLASE_CORS_ORIGINS",
	"DATABLASE_LOOKUP_CONCURRENCY",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func writeYAML(dir, body string) string {
	path := filepath.Join(dir, "config.yaml")
	_ = os.WriteFile(path, []byte(body), 0o600)
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgres)
			convey.So(cfg.RegularSeasonPhaseIDs, convey.ShouldResemble, []int{2})
			convey.So(cfg.ExpandedPhaseIDs, convey.ShouldResemble, []int{2, 3, 4, 5, 6, 7})
			convey.So(cfg.ExpandedPhaseFromSeason, convey.ShouldEqual, 11)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxLimit, convey.ShouldEqual, 1000)
			convey.So(cfg.RequestTimeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"*"})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DATABLASE_ADDR", ":8080")
			_ = os.Setenv("DATABLASE_MAX_LIMIT", "50")
			_ = os.Setenv("DATABLASE_REQUEST_TIMEOUT", "3s")
			_ = os.Setenv("DATABLASE_REGULAR_SEASON_PHASE_IDS", "3,4")
			_ = os.Setenv("DATABLASE_CORS_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxLimit, convey.ShouldEqual, 50)
				convey.So(cfg.RequestTimeout, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.RegularSeasonPhaseIDs, convey.ShouldResemble, []int{3, 4})
				convey.So(cfg.CORSOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeYAML(t.TempDir(), "addr: \":7070\"\nstore: memory\nfixture_path: testdata/fixture.json\nexpanded_phase_ids: [2, 3]\n")
			_ = os.Setenv("DATABLASE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values replace defaults and the rest are kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.ExpandedPhaseIDs, convey.ShouldResemble, []int{2, 3})
				convey.So(cfg.LookupConcurrency, convey.ShouldEqual, 8)
			})

			convey.Convey("And env still wins over the file", func() {
				_ = os.Setenv("DATABLASE_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("DATABLASE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the memory store has no fixture", func() {
			_ = os.Setenv("DATABLASE_STORE", "memory")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a numeric value is not a number", func() {
			_ = os.Setenv("DATABLASE_LOOKUP_CONCURRENCY", "many")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the store kind is unknown", func() {
			_ = os.Setenv("DATABLASE_STORE", "redis")
			_, err := config.Load(ctx)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
