package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/datablase/internal/adapters/http/api"
	"github.com/okian/datablase/internal/adapters/http/swagger"
	"github.com/okian/datablase/internal/adapters/repository"
	app "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/internal/config"
	"github.com/okian/datablase/internal/domain/temporal"
	"github.com/okian/datablase/pkg/logger"
	"github.com/okian/datablase/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	seasonMetricsInterval     = time.Minute
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Custom system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(logger.WithFormat(os.Getenv("DATABLASE_LOG_FORMAT"))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "datablase exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// Defaults -> optional file -> env.
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	configureMetrics(cfg)

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startSeasonMetricsUpdater(ctx, svc)

	srv := newHTTPServer(cfg, svc, log)
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// configureMetrics applies the metric naming and bucket settings. It runs
// before the HTTP server captures the registry.
func configureMetrics(cfg *config.Config) {
	metrics.Configure(
		metrics.WithMetricPrefix(cfg.MetricsPrefix),
		metrics.WithHistogramBuckets(cfg.MetricsBucketsMs),
	)
}

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	opts := []repository.Option{
		repository.WithLogger(log.Named("repository")),
		repository.WithMaxOpenConns(cfg.DBMaxOpenConns),
		repository.WithMaxIdleConns(cfg.DBMaxIdleConns),
		repository.WithConnMaxLifetime(cfg.DBConnMaxLifetime),
	}
	switch cfg.Store {
	case config.StoreMemory:
		store, err := repository.OpenMemory(ctx, cfg.FixturePath, opts...)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		return store, nil
	case config.StorePostgres:
		store, err := repository.OpenPostgres(ctx, cfg.DatabaseURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) *app.Service {
	return app.New(
		app.WithStore(store),
		app.WithLogger(log.Named("service")),
		app.WithPhasePolicy(temporal.PhasePolicy{
			Base:       cfg.RegularSeasonPhaseIDs,
			Expanded:   cfg.ExpandedPhaseIDs,
			FromSeason: cfg.ExpandedPhaseFromSeason,
		}),
		app.WithCurrentSeasonEventType(cfg.CurrentSeasonEventType),
		app.WithLookupConcurrency(cfg.LookupConcurrency),
		app.WithMaxLimit(cfg.MaxLimit),
	)
}

func newHTTPServer(cfg *config.Config, svc *app.Service, log logger.Logger) *http.Server {
	apiServer := api.NewServer(svc,
		api.WithLogger(log.Named("http")),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithRateLimit(cfg.RateLimitPerMinute),
		api.WithRequestTimeout(cfg.RequestTimeout),
		api.WithMount(swagger.Register),
	)
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startSeasonMetricsUpdater refreshes the current season gauge.
func startSeasonMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(seasonMetricsInterval)
	defer ticker.Stop()

	updateSeasonMetrics(ctx, svc)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSeasonMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateSeasonMetrics(ctx context.Context, svc *app.Service) {
	if _, err := svc.CurrentSeason(ctx); err != nil && ctx.Err() == nil {
		metrics.RecordErrorByComponent("service", "current_season")
	}
}
