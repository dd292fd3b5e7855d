package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/pkg/logger"
)

// SeasonInfo is one regular season with its bounds.
type SeasonInfo struct {
	Season    int       `json:"season"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// SeasonDetail adds the bounding days.
type SeasonDetail struct {
	SeasonInfo
	FirstDay int `json:"firstDay"`
	LastDay  int `json:"lastDay"`
}

// Seasons lists regular seasons ascending with their bounds.
func (s *Service) Seasons(ctx context.Context) ([]SeasonInfo, error) {
	const op = "service.seasons"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	seasons, err := s.resolver.Seasons(ctx)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	sess := s.session()
	out := make([]SeasonInfo, len(seasons))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, season := range seasons {
		g.Go(func() error {
			iv, err := sess.SeasonBounds(gctx, season)
			if err != nil {
				return err
			}
			out[i] = SeasonInfo{Season: season, StartTime: iv.Start, EndTime: iv.End}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.Wrap(op, err)
	}
	return out, nil
}

// Season describes one season. "current" resolves to the latest season.
func (s *Service) Season(ctx context.Context, p types.SeasonParam) (*SeasonDetail, error) {
	const op = "service.season"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	sess := s.session()
	season, _, err := sess.ResolveSeason(ctx, p.OrCurrent())
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	first, last, err := s.resolver.SeasonDays(ctx, season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	iv, err := sess.SeasonBounds(ctx, season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	return &SeasonDetail{
		SeasonInfo: SeasonInfo{Season: season, StartTime: iv.Start, EndTime: iv.End},
		FirstDay:   first,
		LastDay:    last,
	}, nil
}

// ConfigResult describes the parameters the API accepts.
type ConfigResult struct {
	StatGroups       []types.StatGroup            `json:"statGroups"`
	SplitTypes       []types.SplitType            `json:"splitTypes"`
	GameTypes        []types.GameType             `json:"gameTypes"`
	PlayerPools      []types.PlayerPool           `json:"playerPools"`
	Fields           map[string][]string          `json:"fields"`
	LeaderCategories map[types.StatGroup][]string `json:"leaderCategories"`
	Counts           []aggregate.Count            `json:"counts"`
	Formulas         []aggregate.Derived          `json:"formulas"`
	MaxLimit         int                          `json:"maxLimit"`
	CurrentSeason    *int                         `json:"currentSeason"`
	CurrentDay       *int                         `json:"currentDay"`
}

// Config lists enumerations, fields per source and the current season and
// day. An empty time map leaves the current values null.
func (s *Service) Config(ctx context.Context) (*ConfigResult, error) {
	const op = "service.config"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	out := &ConfigResult{
		StatGroups:       s.registry.Groups(),
		SplitTypes:       types.SplitTypes,
		GameTypes:        types.GameTypes,
		PlayerPools:      types.PlayerPools,
		Fields:           map[string][]string{},
		LeaderCategories: map[types.StatGroup][]string{},
		Counts:           aggregate.Counts(),
		Formulas:         aggregate.Derivations(),
		MaxLimit:         s.maxLimit,
	}
	for _, k := range s.registry.Keys() {
		if k.Split == types.SplitGame {
			continue
		}
		src, err := s.registry.Source(k.Group, k.Split, k.GameType)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		out.Fields[k.String()] = src.FieldNames()
	}
	for _, g := range out.StatGroups {
		out.LeaderCategories[g] = s.registry.LeaderCategories(g)
	}

	season, err := s.CurrentSeason(ctx)
	switch {
	case types.IsNotFound(err):
		s.logger.Debug(ctx, "time map empty, no current season")
		return out, nil
	case err != nil:
		return nil, types.Wrap(op, err)
	}
	out.CurrentSeason = &season
	day, err := s.resolver.CurrentDay(ctx, season)
	switch {
	case types.IsNotFound(err):
		s.logger.Debug(ctx, "no days for current season", logger.Int("season", season))
	case err != nil:
		return nil, types.Wrap(op, err)
	default:
		out.CurrentDay = &day
	}
	return out, nil
}
