package service

import (
	"context"
	"regexp"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/ordering"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/validity"
)

const playerSlugField = "player_url_slug"

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Player lists are ordered by these keys after any requested sort field.
var playerOrder = []ordering.Key{
	ordering.Desc("debut_season"),
	ordering.Desc("debut_gameday"),
	ordering.Desc("season_from"),
	ordering.Desc("gameday_from"),
	ordering.Asc(repository.PlayerIDField),
}

// PlayersParams filters and pages the player list.
type PlayersParams struct {
	Season    types.SeasonParam
	Pool      types.PlayerPool
	SortField string
	Order     types.Order
	Skip      int
	Limit     int
	Fields    []string
}

// Players lists one revision per player. With a season, the revision valid
// at its end; otherwise each player's newest revision.
func (s *Service) Players(ctx context.Context, p PlayersParams) ([]model.Record, error) {
	const op = "service.players"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	if p.SortField != "" && !identifier.MatchString(p.SortField) {
		return nil, types.Errorf(op, types.ErrValidation,
			"invalid value provided for 'sortField' parameter: %s", p.SortField)
	}
	for _, f := range p.Fields {
		if !identifier.MatchString(f) {
			return nil, types.Errorf(op, types.ErrValidation,
				"invalid value provided for 'fields' parameter: %s", f)
		}
	}

	asOf, err := seasonInstant(ctx, s.session(), p.Season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	revs, err := s.store.PlayerRevisions(ctx, repository.RevisionQuery{
		AsOf:         asOf,
		AllRevisions: asOf == nil,
		Where:        p.Pool.Filter(),
	})
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	if asOf != nil {
		revs = validity.ActiveAt(*asOf, revs)
	} else {
		revs = validity.Latest(revs)
	}

	recs := make([]model.Record, len(revs))
	for i, rev := range revs {
		recs[i] = rev.Record()
	}
	keys := playerOrder
	if p.SortField != "" {
		keys = append([]ordering.Key{{Field: p.SortField, Desc: p.Order != types.OrderAsc}}, playerOrder...)
	}
	ordering.Sort(recs, keys...)
	recs = ordering.Page(recs, p.Skip, s.limit(p.Limit, s.maxLimit))

	if len(p.Fields) > 0 {
		for i, r := range recs {
			recs[i] = r.Project(p.Fields)
		}
	}
	return recs, nil
}

// Player finds a player's newest revision by player id, then by url slug.
func (s *Service) Player(ctx context.Context, idOrSlug string) (*model.Revision, error) {
	const op = "service.player"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	for _, field := range []string{repository.PlayerIDField, playerSlugField} {
		revs, err := s.store.PlayerRevisions(ctx, revisionQuery(field, idOrSlug, nil))
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		if rev, ok := newest(revs, nil); ok {
			return &rev, nil
		}
	}
	return nil, types.NotFoundf(op, "player %s not found", idOrSlug)
}
