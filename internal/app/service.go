// Package service provides the request scoped orchestration that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/temporal"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
	"github.com/okian/datablase/pkg/logger"
	"github.com/okian/datablase/pkg/metrics"
)

// Service answers every read the API exposes. It holds no per-request state;
// each call opens its own temporal session.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	registry *views.Registry
	resolver *temporal.Resolver
	agg      *aggregate.Aggregator

	policy      temporal.PhasePolicy
	eventType   string
	concurrency int
	maxLimit    int

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry replaces the production view registry.
func WithRegistry(r *views.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithPhasePolicy sets the regular season phases.
func WithPhasePolicy(p temporal.PhasePolicy) Option {
	return func(s *Service) {
		if len(p.Base) > 0 {
			s.policy = p
		}
	}
}

// WithCurrentSeasonEventType restricts which time map entries define the
// current season.
func WithCurrentSeasonEventType(t string) Option {
	return func(s *Service) {
		s.eventType = t
	}
}

// WithLookupConcurrency bounds parallel sub-lookups inside one request.
func WithLookupConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMaxLimit caps the limit accepted by list operations.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		policy:      temporal.DefaultPhasePolicy(),
		concurrency: 8,
		maxLimit:    1000,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = views.MustRegistry()
	}
	return s
}

// Start wires the stat core over the store and checks connectivity.
func (s *Service) Start(ctx context.Context) error {
	const op = "service.start"
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		return types.NewKind(op, ErrNoStore)
	}

	s.logger.Info(ctx, "starting stats service...")
	if err := s.store.Ping(ctx); err != nil {
		return types.Wrap(op, err)
	}
	s.resolver = temporal.NewResolver(s.store,
		temporal.WithPhasePolicy(s.policy),
		temporal.WithCurrentSeasonEventType(s.eventType))
	s.agg = aggregate.New(s.store, aggregate.WithConcurrency(s.concurrency))

	s.started = true
	s.logger.Info(ctx, "stats service started",
		logger.Int("lookupConcurrency", s.concurrency),
		logger.Int("maxLimit", s.maxLimit),
		logger.Int("sources", len(s.registry.Keys())),
	)
	return nil
}

// Stop releases the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping stats service...")
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "stats service stopped")
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.ready("service.ping"); err != nil {
		return err
	}
	return s.store.Ping(ctx)
}

// CurrentSeason resolves the current season and publishes it as a gauge.
func (s *Service) CurrentSeason(ctx context.Context) (int, error) {
	if err := s.ready("service.current_season"); err != nil {
		return 0, err
	}
	season, err := s.resolver.CurrentSeason(ctx)
	if err != nil {
		return 0, err
	}
	metrics.UpdateCurrentSeason(season)
	return season, nil
}

func (s *Service) ready(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.NewKind(op, ErrNotStarted)
	}
	return nil
}

// limit clamps a requested limit; zero or negative falls back to def.
func (s *Service) limit(n, def int) int {
	if n <= 0 {
		n = def
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	return n
}

// session opens a request scoped temporal memo.
func (s *Service) session() *temporal.Session {
	return s.resolver.Session()
}

// resolveSeason resolves p, returning nil when it was not supplied.
func resolveSeason(ctx context.Context, sess *temporal.Session, p types.SeasonParam) (*int, error) {
	season, ok, err := sess.ResolveSeason(ctx, p)
	if err != nil || !ok {
		return nil, err
	}
	return &season, nil
}
