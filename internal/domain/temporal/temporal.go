// Package temporal resolves seasons and days against the time map.
package temporal

import (
	"context"
	"slices"
	"time"

	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
)

// TimeMapReader is the time map capability the resolver needs from a store.
// Implementations return errors of kind types.ErrNotFound when nothing
// matches.
type TimeMapReader interface {
	// LatestSeason returns the highest season, restricted to entries of
	// eventType when it is non-empty.
	LatestSeason(ctx context.Context, eventType string) (int, error)
	// LatestDay returns the highest day recorded for season.
	LatestDay(ctx context.Context, season int) (int, error)
	// DayRange returns the first and last day of season among phaseIDs.
	DayRange(ctx context.Context, season int, phaseIDs []int) (first, last int, err error)
	// DayTimestamp returns first_time for (season, day).
	DayTimestamp(ctx context.Context, season, day int) (time.Time, error)
	// SeasonPhases lists the distinct (season, phase) pairs.
	SeasonPhases(ctx context.Context) ([]model.SeasonPhase, error)
}

// PhasePolicy decides which phases make up a season's regular season.
type PhasePolicy struct {
	Base       []int
	Expanded   []int
	FromSeason int
}

// DefaultPhasePolicy uses phase 2 before season 11 and phases 2 to 7 after.
func DefaultPhasePolicy() PhasePolicy {
	return PhasePolicy{Base: []int{2}, Expanded: []int{2, 3, 4, 5, 6, 7}, FromSeason: 11}
}

// For returns the regular season phases of season.
func (p PhasePolicy) For(season int) []int {
	if len(p.Expanded) > 0 && season >= p.FromSeason {
		return p.Expanded
	}
	return p.Base
}

func (p PhasePolicy) includes(season, phase int) bool {
	for _, id := range p.For(season) {
		if id == phase {
			return true
		}
	}
	return false
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithPhasePolicy overrides the regular season phases.
func WithPhasePolicy(p PhasePolicy) Option {
	return func(r *Resolver) {
		if len(p.Base) > 0 {
			r.policy = p
		}
	}
}

// WithCurrentSeasonEventType restricts current season resolution to entries
// of the given type, e.g. "gameday".
func WithCurrentSeasonEventType(t string) Option {
	return func(r *Resolver) { r.eventType = t }
}

// Resolver converts season and day parameters into concrete values and
// timestamps. It holds no mutable state.
type Resolver struct {
	store     TimeMapReader
	policy    PhasePolicy
	eventType string
}

// NewResolver creates a Resolver over store.
func NewResolver(store TimeMapReader, opts ...Option) *Resolver {
	r := &Resolver{store: store, policy: DefaultPhasePolicy()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CurrentSeason returns the latest season in the time map.
func (r *Resolver) CurrentSeason(ctx context.Context) (int, error) {
	const op = "temporal.current_season"
	s, err := r.store.LatestSeason(ctx, r.eventType)
	if err != nil {
		return 0, types.Wrap(op, err)
	}
	return s, nil
}

// CurrentDay returns the latest day of season.
func (r *Resolver) CurrentDay(ctx context.Context, season int) (int, error) {
	const op = "temporal.current_day"
	d, err := r.store.LatestDay(ctx, season)
	if err != nil {
		return 0, types.Wrap(op, err)
	}
	return d, nil
}

// SeasonDays returns the first and last regular season day of season.
func (r *Resolver) SeasonDays(ctx context.Context, season int) (first, last int, err error) {
	const op = "temporal.season_days"
	first, last, err = r.store.DayRange(ctx, season, r.policy.For(season))
	if err != nil {
		return 0, 0, types.Wrap(op, err)
	}
	return first, last, nil
}

// DayTimestamp returns the instant (season, day) began.
func (r *Resolver) DayTimestamp(ctx context.Context, season, day int) (time.Time, error) {
	const op = "temporal.day_timestamp"
	t, err := r.store.DayTimestamp(ctx, season, day)
	if err != nil {
		return time.Time{}, types.Wrap(op, err)
	}
	return t, nil
}

// SeasonBounds returns the timestamps of the first and last regular season
// days of season.
func (r *Resolver) SeasonBounds(ctx context.Context, season int) (model.SeasonInterval, error) {
	const op = "temporal.season_bounds"
	first, last, err := r.SeasonDays(ctx, season)
	if err != nil {
		return model.SeasonInterval{}, types.Wrap(op, err)
	}
	start, err := r.DayTimestamp(ctx, season, first)
	if err != nil {
		return model.SeasonInterval{}, types.Wrap(op, err)
	}
	end, err := r.DayTimestamp(ctx, season, last)
	if err != nil {
		return model.SeasonInterval{}, types.Wrap(op, err)
	}
	return model.SeasonInterval{Start: start, End: end}, nil
}

// Seasons lists the seasons that have regular season days, ascending.
func (r *Resolver) Seasons(ctx context.Context) ([]int, error) {
	const op = "temporal.seasons"
	pairs, err := r.store.SeasonPhases(ctx)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	var out []int
	seen := map[int]bool{}
	for _, p := range pairs {
		if !seen[p.Season] && r.policy.includes(p.Season, p.PhaseID) {
			seen[p.Season] = true
			out = append(out, p.Season)
		}
	}
	slices.Sort(out)
	return out, nil
}

// ResolveSeason turns a season parameter into a number. ok is false when
// the parameter was not supplied.
func (r *Resolver) ResolveSeason(ctx context.Context, p types.SeasonParam) (season int, ok bool, err error) {
	if !p.IsSet() {
		return 0, false, nil
	}
	if n, isValue := p.Value(); isValue {
		return n, true, nil
	}
	s, err := r.CurrentSeason(ctx)
	if err != nil {
		return 0, false, err
	}
	return s, true, nil
}

// ResolveDay turns a day parameter into a number within season.
func (r *Resolver) ResolveDay(ctx context.Context, season int, p types.DayParam) (day int, ok bool, err error) {
	if !p.IsCurrent() {
		n, isValue := p.Value()
		return n, isValue, nil
	}
	d, err := r.CurrentDay(ctx, season)
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}
