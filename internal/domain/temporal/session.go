package temporal

import (
	"context"
	"sync"
	"time"

	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
)

// Session memoizes resolutions for the lifetime of one request so that
// "current" and each season's bounds are looked up at most once. A Session
// must not outlive its request.
type Session struct {
	r *Resolver

	mu      sync.Mutex
	current *call[int]
	bounds  map[int]*call[model.SeasonInterval]
	days    map[[2]int]*call[time.Time]
}

type call[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (c *call[T]) do(fn func() (T, error)) (T, error) {
	c.once.Do(func() { c.val, c.err = fn() })
	return c.val, c.err
}

// Session starts a request scoped memo over the resolver.
func (r *Resolver) Session() *Session {
	return &Session{
		r:      r,
		bounds: map[int]*call[model.SeasonInterval]{},
		days:   map[[2]int]*call[time.Time]{},
	}
}

// CurrentSeason resolves the current season once.
func (s *Session) CurrentSeason(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.current == nil {
		s.current = &call[int]{}
	}
	c := s.current
	s.mu.Unlock()
	return c.do(func() (int, error) { return s.r.CurrentSeason(ctx) })
}

// SeasonBounds resolves each season's bounds once.
func (s *Session) SeasonBounds(ctx context.Context, season int) (model.SeasonInterval, error) {
	s.mu.Lock()
	c, ok := s.bounds[season]
	if !ok {
		c = &call[model.SeasonInterval]{}
		s.bounds[season] = c
	}
	s.mu.Unlock()
	return c.do(func() (model.SeasonInterval, error) { return s.r.SeasonBounds(ctx, season) })
}

// DayTimestamp resolves each (season, day) once.
func (s *Session) DayTimestamp(ctx context.Context, season, day int) (time.Time, error) {
	key := [2]int{season, day}
	s.mu.Lock()
	c, ok := s.days[key]
	if !ok {
		c = &call[time.Time]{}
		s.days[key] = c
	}
	s.mu.Unlock()
	return c.do(func() (time.Time, error) { return s.r.DayTimestamp(ctx, season, day) })
}

// ResolveSeason is Resolver.ResolveSeason with the current season memoized.
func (s *Session) ResolveSeason(ctx context.Context, p types.SeasonParam) (int, bool, error) {
	if !p.IsCurrent() {
		n, isValue := p.Value()
		return n, isValue, nil
	}
	n, err := s.CurrentSeason(ctx)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// ResolveDay resolves a day parameter within season.
func (s *Session) ResolveDay(ctx context.Context, season int, p types.DayParam) (int, bool, error) {
	return s.r.ResolveDay(ctx, season, p)
}
