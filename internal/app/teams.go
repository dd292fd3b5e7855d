package service

import (
	"context"
	"sort"
	"time"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/ordering"
	"github.com/okian/datablase/internal/domain/temporal"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/validity"
	"github.com/okian/datablase/pkg/metrics"
)

const teamSlugField = "url_slug"

// Tournament teams are never listed.
var tournamentTeams = types.PoolFilter{{Field: "team_current_status", Value: "tournament"}}

// TeamsParams selects the league as of a season. An unset season means the
// current one.
type TeamsParams struct {
	Season types.SeasonParam
}

// TeamParams selects one team by id or url slug.
type TeamParams struct {
	IDOrSlug string
	Season   types.SeasonParam
}

// RosterParams selects a team's players.
type RosterParams struct {
	TeamID         string
	Season         types.SeasonParam
	ExcludeShadows bool
	Position       string
}

// Teams lists one revision per team valid at the season's end.
func (s *Service) Teams(ctx context.Context, p TeamsParams) ([]model.Revision, error) {
	const op = "service.teams"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	sess := s.session()
	asOf, err := seasonInstant(ctx, sess, p.Season.OrCurrent())
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	revs, err := s.store.TeamRevisions(ctx, repository.RevisionQuery{AsOf: asOf, Exclude: tournamentTeams})
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	return validity.ActiveAt(*asOf, revs), nil
}

// Team finds a team by team id, then by url slug. Without a season the
// newest revision is returned.
func (s *Service) Team(ctx context.Context, p TeamParams) (*model.Revision, error) {
	const op = "service.team"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	asOf, err := seasonInstant(ctx, s.session(), p.Season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	for _, field := range []string{repository.TeamIDField, teamSlugField} {
		revs, err := s.store.TeamRevisions(ctx, revisionQuery(field, p.IDOrSlug, asOf))
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		if rev, ok := newest(revs, asOf); ok {
			return &rev, nil
		}
	}
	return nil, types.NotFoundf(op, "team %s not found", p.IDOrSlug)
}

// Roster lists the players attached to a team as of the season's end, or
// the current roster when no season is given.
func (s *Service) Roster(ctx context.Context, p RosterParams) ([]model.Revision, error) {
	const op = "service.roster"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	asOf, err := seasonInstant(ctx, s.session(), p.Season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	q := repository.RevisionQuery{Field: repository.TeamIDField, Values: []string{p.TeamID}, AsOf: asOf}
	if p.ExcludeShadows {
		q.Where = append(q.Where, types.Predicate{Field: "current_location", Value: "main_roster"})
	}
	if p.Position != "" {
		q.Where = append(q.Where, types.Predicate{Field: "position_type", Value: p.Position})
	}
	revs, err := s.store.PlayerRevisions(ctx, q)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	if asOf != nil {
		revs = validity.ActiveAt(*asOf, revs)
	} else {
		revs = validity.Latest(revs)
	}
	sort.SliceStable(revs, func(i, j int) bool { return ordering.Less(revs[i].Fields, revs[j].Fields, rosterOrder) })
	return revs, nil
}

// rosterOrder lists batters before pitchers, each by lineup slot.
var rosterOrder = []ordering.Key{ordering.Asc("position_type"), ordering.Asc("position_id")}

// seasonInstant returns the canonical as-of instant of p, nil when unset.
func seasonInstant(ctx context.Context, sess *temporal.Session, p types.SeasonParam) (*time.Time, error) {
	season, err := resolveSeason(ctx, sess, p)
	if err != nil || season == nil {
		return nil, err
	}
	iv, err := sess.SeasonBounds(ctx, *season)
	if err != nil {
		return nil, err
	}
	t := validity.Instant(iv, validity.AnchorEnd)
	return &t, nil
}

// revisionQuery matches field = value at asOf, or across every revision.
func revisionQuery(field, value string, asOf *time.Time) repository.RevisionQuery {
	return repository.RevisionQuery{
		Field:        field,
		Values:       []string{value},
		AsOf:         asOf,
		AllRevisions: asOf == nil,
	}
}

// newest picks the first entity's revision active at asOf, or its latest
// revision when asOf is nil.
func newest(revs []model.Revision, asOf *time.Time) (model.Revision, bool) {
	var picked []model.Revision
	if asOf != nil {
		picked = validity.ActiveAt(*asOf, revs)
	} else {
		picked = validity.Latest(revs)
	}
	if len(picked) == 0 {
		return model.Revision{}, false
	}
	return picked[0], true
}

// seasonTeams resolves (season, team) pairs to the team revision active at
// the season's end. Unknown seasons leave the pair unresolved.
type seasonTeams struct {
	store repository.Store
	sess  *temporal.Session
}

var _ assemble.TeamResolver = seasonTeams{}

func (t seasonTeams) Team(ctx context.Context, key assemble.TeamKey) (model.Revision, bool, error) {
	const op = "service.resolve_team"
	metrics.RecordTeamResolutions(1)
	iv, err := t.sess.SeasonBounds(ctx, key.Season)
	if types.IsNotFound(err) {
		return model.Revision{}, false, nil
	}
	if err != nil {
		return model.Revision{}, false, types.Wrap(op, err)
	}
	asOf := validity.Instant(iv, validity.AnchorEnd)
	revs, err := t.store.TeamRevisions(ctx, repository.RevisionQuery{
		Field: repository.TeamIDField, Values: []string{key.TeamID}, AsOf: &asOf,
	})
	if err != nil {
		return model.Revision{}, false, types.Wrap(op, err)
	}
	rev, ok := validity.SelectActive(key.TeamID, asOf, revs)
	return rev, ok, nil
}
