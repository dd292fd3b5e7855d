package service

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/pkg/metrics"
)

const defaultLeaderLimit = 10

// StatsParams selects player stat splits.
type StatsParams struct {
	Groups    []types.StatGroup
	Split     types.SplitType
	GameType  types.GameType
	Season    types.SeasonParam
	PlayerIDs []string
	TeamIDs   []string
	SortStat  string
	Order     types.Order
	Limit     int
	Fields    []string
}

// LeadersParams selects leader categories.
type LeadersParams struct {
	Groups     []types.StatGroup
	Categories []string
	Season     types.SeasonParam
	Split      types.SplitType
	GameType   types.GameType
	Limit      int
}

func (p *StatsParams) defaults() {
	if p.Split == "" {
		p.Split = types.SplitSeason
	}
	if p.GameType == "" {
		p.GameType = types.GameRegular
	}
	if p.Order == "" {
		p.Order = types.OrderDesc
	}
}

func (p StatsParams) check(op string) error {
	if len(p.Groups) == 0 {
		return types.Errorf(op, types.ErrValidation,
			"required query param 'group' missing. Available groups: %s", groupList(types.StatGroups))
	}
	if p.Split == types.SplitCareer {
		if p.Season.IsSet() {
			return types.Errorf(op, types.ErrUnsupportedCombination,
				"the 'season' parameter is not supported with type=career")
		}
		if p.SortStat != "" {
			return types.Errorf(op, types.ErrUnsupportedCombination,
				"the 'sortStat' parameter is not supported with type=career")
		}
	}
	if len(p.Fields) > 0 && len(p.Groups) > 1 {
		return types.Errorf(op, types.ErrUnsupportedCombination,
			"the 'fields' parameter is only supported with a single group")
	}
	return nil
}

// PlayerStats returns one result per requested group, in request order.
func (s *Service) PlayerStats(ctx context.Context, p StatsParams) ([]assemble.StatGroupResult, error) {
	const op = "service.player_stats"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	p.defaults()
	if err := p.check(op); err != nil {
		return nil, err
	}

	sess := s.session()
	seasonParam := p.Season
	if p.Split == types.SplitSeason {
		seasonParam = seasonParam.OrCurrent()
	}
	season, err := resolveSeason(ctx, sess, seasonParam)
	if err != nil {
		return nil, types.Wrap(op, err)
	}

	// sortStat applies to the groups that carry it; it is rejected only when
	// no requested group does.
	var sortErr error
	matched := false
	queries := make([]repository.StatsQuery, len(p.Groups))
	for i, g := range p.Groups {
		sel, err := s.registry.Select(g, p.Split, p.GameType, p.Fields)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		q := repository.StatsQuery{
			Selection: sel,
			Season:    season,
			PlayerIDs: p.PlayerIDs,
			TeamIDs:   p.TeamIDs,
			Order:     p.Order,
			Limit:     s.limit(p.Limit, s.maxLimit),
		}
		if p.SortStat != "" {
			fl, err := s.registry.SortField(sel.Source, p.SortStat)
			switch {
			case err == nil:
				q.SortField = &fl
				matched = true
			case sortErr == nil:
				sortErr = err
			}
		}
		queries[i] = q
	}
	if p.SortStat != "" && !matched {
		return nil, types.Wrap(op, sortErr)
	}

	groups, err := s.statRows(ctx, queries)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	out, err := assemble.New(seasonTeams{store: s.store, sess: sess},
		assemble.WithConcurrency(s.concurrency)).PlayerStats(ctx, groups)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	for _, r := range out {
		metrics.RecordStatSplits(string(r.Group), string(r.Type), r.TotalSplits)
	}
	return out, nil
}

// statRows fetches every query concurrently, keeping query order.
func (s *Service) statRows(ctx context.Context, queries []repository.StatsQuery) ([]assemble.GroupRows, error) {
	out := make([]assemble.GroupRows, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			rows, err := s.store.StatRows(gctx, q)
			if err != nil {
				return err
			}
			out[i] = assemble.GroupRows{Selection: q.Selection, Rows: rows}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaders ranks season leaders per group. Without explicit categories each
// group's defaults are used; without groups every group is returned.
func (s *Service) Leaders(ctx context.Context, p LeadersParams) ([]assemble.LeaderGroup, error) {
	const op = "service.leaders"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if p.Split != "" && p.Split != types.SplitSeason {
		return nil, types.Errorf(op, types.ErrUnsupportedCombination,
			"leaders are only available for type=season")
	}
	if p.GameType == "" {
		p.GameType = types.GameRegular
	}
	groups := p.Groups
	if len(groups) == 0 {
		groups = s.registry.Groups()
	}

	type job struct {
		group int
		query repository.LeaderQuery
	}
	sess := s.session()
	season, _, err := sess.ResolveSeason(ctx, p.Season.OrCurrent())
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	var jobs []job
	for gi, g := range groups {
		src, err := s.registry.Source(g, types.SplitSeason, p.GameType)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		cats := p.Categories
		if len(cats) == 0 {
			cats = s.registry.LeaderCategories(g)
		}
		for _, c := range cats {
			fl, ok := src.Field(c)
			if !ok {
				return nil, types.Errorf(op, types.ErrValidation,
					"unsupported value provided for 'leaderCategories' parameter: %s. Available categories for %s: %s",
					c, g, strings.Join(src.FieldNames(), ", "))
			}
			jobs = append(jobs, job{group: gi, query: repository.LeaderQuery{
				Category: fl, Season: season, Limit: s.limit(p.Limit, defaultLeaderLimit),
			}})
		}
	}

	results := make([][]assemble.LeaderRow, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, j := range jobs {
		g.Go(func() error {
			rows, err := s.store.Leaders(gctx, j.query)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.Wrap(op, err)
	}

	perGroup := make([][]assemble.LeaderRow, len(groups))
	for i, j := range jobs {
		perGroup[j.group] = append(perGroup[j.group], results[i]...)
	}
	out := make([]assemble.LeaderGroup, len(groups))
	for i, grp := range groups {
		out[i] = assemble.Leaderboard(grp, perGroup[i], &season)
	}
	return out, nil
}

func groupList(gs []types.StatGroup) string {
	parts := make([]string, len(gs))
	for i, g := range gs {
		parts[i] = string(g)
	}
	return strings.Join(parts, ", ")
}

// gameStats assembles the per-game hitting and pitching lines of one team,
// pinning team references to the snapshot valid at the game.
func (s *Service) gameStats(ctx context.Context, gameID, teamID string, team *model.Revision) ([]assemble.StatGroupResult, error) {
	groups := []types.StatGroup{types.GroupHitting, types.GroupPitching}
	queries := make([]repository.StatsQuery, len(groups))
	for i, g := range groups {
		sel, err := s.registry.Select(g, types.SplitGame, types.GameRegular, nil)
		if err != nil {
			return nil, err
		}
		queries[i] = repository.StatsQuery{Selection: sel, GameID: gameID, TeamIDs: []string{teamID}}
	}
	rows, err := s.statRows(ctx, queries)
	if err != nil {
		return nil, err
	}
	teams := assemble.StaticTeams{}
	if team != nil {
		teams[teamID] = *team
	}
	return assemble.New(teams, assemble.WithConcurrency(s.concurrency)).PlayerStats(ctx, rows)
}
