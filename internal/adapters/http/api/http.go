// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/okian/datablase/internal/adapters/repository"
	service "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service implements it.
type Dependencies interface {
	Ping(ctx context.Context) error

	Events(ctx context.Context, q repository.EventQuery) (service.ListResult[model.Record], error)
	Counts(ctx context.Context, c aggregate.Count, ids []string) (service.ListResult[aggregate.CountRow], error)
	Derived(ctx context.Context, d aggregate.Derived, ids []string) (service.ListResult[aggregate.Result], error)

	Config(ctx context.Context) (*service.ConfigResult, error)
	Seasons(ctx context.Context) ([]service.SeasonInfo, error)
	Season(ctx context.Context, p types.SeasonParam) (*service.SeasonDetail, error)

	Teams(ctx context.Context, p service.TeamsParams) ([]model.Revision, error)
	Team(ctx context.Context, p service.TeamParams) (*model.Revision, error)
	Roster(ctx context.Context, p service.RosterParams) ([]model.Revision, error)
	Players(ctx context.Context, p service.PlayersParams) ([]model.Record, error)
	Player(ctx context.Context, idOrSlug string) (*model.Revision, error)

	PlayerStats(ctx context.Context, p service.StatsParams) ([]assemble.StatGroupResult, error)
	Leaders(ctx context.Context, p service.LeadersParams) ([]assemble.LeaderGroup, error)

	Games(ctx context.Context, p service.GamesParams) ([]model.Game, error)
	Game(ctx context.Context, gameID string) (*model.Game, error)
	BoxScore(ctx context.Context, gameID string) (*assemble.BoxScoreResult, error)
	GameEvents(ctx context.Context, gameID string) (*assemble.GameEventsResult, error)
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the stats API.
type Server struct {
	deps   Dependencies
	logger logger.Logger

	corsOrigins []string
	ratePerMin  int
	timeout     time.Duration
	mounts      []func(chi.Router)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins sets the allowed origins. Empty keeps "*".
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithRateLimit caps requests per client IP and minute; 0 disables it.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute >= 0 {
			s.ratePerMin = perMinute
		}
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMount registers extra routes, such as the API docs, on the root router.
func WithMount(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.mounts = append(s.mounts, fn)
		}
	}
}

// NewServer creates a new API server over deps.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		corsOrigins: []string{"*"},
		timeout:     15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// Handler builds the router with all middleware and routes attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.accessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	health := NewHealthHandler(s.deps)
	r.Get("/healthz", MetricsMiddleware(health.HandleMetrics, "healthz"))
	r.Get("/livez", MetricsMiddleware(health.HandleLive, "livez"))
	for _, mount := range s.mounts {
		mount(r)
	}

	r.Group(func(r chi.Router) {
		if s.ratePerMin > 0 {
			r.Use(httprate.LimitByIP(s.ratePerMin, time.Minute))
		}
		r.Use(chimiddleware.Timeout(s.timeout))
		r.Route("/v1", s.routesV1)
		r.Route("/v2", s.routesV2)
	})
	return r
}

func (s *Server) routesV1(r chi.Router) {
	r.Get("/events", s.route("v1.events", s.handleEvents))
	for _, c := range aggregate.Counts() {
		r.Get("/"+string(c), s.route("v1."+string(c), s.handleCount(c)))
	}
	for _, d := range aggregate.Derivations() {
		r.Get("/"+string(d), s.route("v1."+string(d), s.handleDerived(d)))
	}
}

func (s *Server) routesV2(r chi.Router) {
	r.Get("/config", s.route("v2.config", s.handleConfig))
	r.Get("/seasons", s.route("v2.seasons", s.handleSeasons))
	r.Get("/seasons/{season}", s.route("v2.season", s.handleSeason))
	r.Get("/teams", s.route("v2.teams", s.handleTeams))
	r.Get("/teams/{teamIdOrSlug}", s.route("v2.team", s.handleTeam))
	r.Get("/teams/{teamIdOrSlug}/roster", s.route("v2.roster", s.handleRoster))
	r.Get("/players", s.route("v2.players", s.handlePlayers))
	r.Get("/players/{playerIdOrSlug}", s.route("v2.player", s.handlePlayer))
	r.Get("/stats", s.route("v2.stats", s.handleStats))
	r.Get("/stats/leaders", s.route("v2.leaders", s.handleLeaders))
	r.Get("/games", s.route("v2.games", s.handleGames))
	r.Get("/games/{gameId}", s.route("v2.game", s.handleGame))
	r.Get("/games/{gameId}/boxscore", s.route("v2.boxscore", s.handleBoxScore))
	r.Get("/games/{gameId}/events", s.route("v2.game_events", s.handleGameEvents))
}

// route wraps a handler with request metrics under endpoint.
func (s *Server) route(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return MetricsMiddleware(h, endpoint)
}
