// Package config defines service configuration and how it is loaded.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load(ctx) layers a YAML file and DATABLASE_* env vars over the defaults.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// Store selects the backend: postgres or memory.
	Store string `koanf:"store" validate:"oneof=postgres memory"`

	// DatabaseURL is the lib/pq connection string for the postgres store.
	DatabaseURL string `koanf:"database_url" validate:"required_if=Store postgres"`

	DBMaxOpenConns    int           `koanf:"db_max_open_conns" validate:"min=1"`
	DBMaxIdleConns    int           `koanf:"db_max_idle_conns" validate:"min=0"`
	DBConnMaxLifetime time.Duration `koanf:"db_conn_max_lifetime"`

	// FixturePath points at the JSON dataset for the memory store.
	FixturePath string `koanf:"fixture_path" validate:"required_if=Store memory"`

	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitPerMinute caps requests per client IP; 0 disables limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute" validate:"min=0"`

	// RequestTimeout bounds each request including its store round trips.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`

	// MaxLimit caps limit query parameters on list endpoints.
	MaxLimit int `koanf:"max_limit" validate:"min=1"`

	// LookupConcurrency bounds parallel sub-lookups inside one request.
	LookupConcurrency int `koanf:"lookup_concurrency" validate:"min=1"`

	// CurrentSeasonEventType restricts which time map entries define the
	// current season; empty means any entry.
	CurrentSeasonEventType string `koanf:"current_season_event_type"`

	// RegularSeasonPhaseIDs are the phases that bound a regular season.
	RegularSeasonPhaseIDs []int `koanf:"regular_season_phase_ids" validate:"min=1"`

	// ExpandedPhaseIDs replace RegularSeasonPhaseIDs from ExpandedPhaseFromSeason on.
	ExpandedPhaseIDs        []int `koanf:"expanded_phase_ids"`
	ExpandedPhaseFromSeason int   `koanf:"expanded_phase_from_season" validate:"min=0"`

	// MetricsPrefix is prepended to every metric name; empty means none.
	MetricsPrefix string `koanf:"metrics_prefix" validate:"omitempty,excludesall=- .:"`

	// MetricsBucketsMs overrides the latency histogram bounds.
	MetricsBucketsMs []float64 `koanf:"metrics_buckets_ms" validate:"dive,gt=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		Store:                   StorePostgres,
		DatabaseURL:             "postgres://localhost:5432/blaseball?sslmode=disable",
		DBMaxOpenConns:          10,
		DBMaxIdleConns:          5,
		DBConnMaxLifetime:       30 * time.Minute,
		CORSOrigins:             []string{"*"},
		RateLimitPerMinute:      600,
		RequestTimeout:          15 * time.Second,
		MaxLimit:                1000,
		LookupConcurrency:       8,
		CurrentSeasonEventType:  "",
		RegularSeasonPhaseIDs:   []int{2},
		ExpandedPhaseIDs:        []int{2, 3, 4, 5, 6, 7},
		ExpandedPhaseFromSeason: 11,
	}
}
