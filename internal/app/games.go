package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/datablase/internal/adapters/repository"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/validity"
)

// GamesParams filters the game list.
type GamesParams struct {
	Season  types.SeasonParam
	Day     types.DayParam
	TeamIDs []string
}

// Games lists games by season descending, then day and id. A day of
// "current" without a season is the current day of the current season.
func (s *Service) Games(ctx context.Context, p GamesParams) ([]model.Game, error) {
	const op = "service.games"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	sess := s.session()
	season, err := resolveSeason(ctx, sess, p.Season)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	q := repository.GameQuery{Season: season, TeamIDs: p.TeamIDs}
	if p.Day.IsSet() {
		dayScope := season
		if dayScope == nil {
			if dayScope, err = resolveSeason(ctx, sess, types.Current()); err != nil {
				return nil, types.Wrap(op, err)
			}
		}
		day, _, err := sess.ResolveDay(ctx, *dayScope, p.Day)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		q.Day = &day
	}
	games, err := s.store.Games(ctx, q)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	return games, nil
}

// Game returns one game by id.
func (s *Service) Game(ctx context.Context, gameID string) (*model.Game, error) {
	const op = "service.game"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	g, err := s.store.Game(ctx, gameID)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	return &g, nil
}

// BoxScore joins a game with the team snapshots valid when it was played
// and each side's per-game hitting and pitching lines.
func (s *Service) BoxScore(ctx context.Context, gameID string) (*assemble.BoxScoreResult, error) {
	const op = "service.box_score"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	game, err := s.store.Game(ctx, gameID)
	if err != nil {
		return nil, types.Wrap(op, err)
	}

	// Team snapshots are only meaningful as of the game day.
	asOf, err := s.session().DayTimestamp(ctx, game.Season, game.Day)
	if err != nil {
		if types.IsNotFound(err) {
			return nil, types.NotFoundf(op, "game %s: no timestamp for season %d day %d", game.ID, game.Season, game.Day)
		}
		return nil, types.Wrap(op, err)
	}

	revs, err := s.store.TeamRevisions(ctx, repository.RevisionQuery{
		Field:  repository.TeamIDField,
		Values: []string{game.HomeTeam, game.AwayTeam},
		AsOf:   &asOf,
	})
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	home := pick(game.HomeTeam, asOf, revs)
	away := pick(game.AwayTeam, asOf, revs)

	var homeStats, awayStats []assemble.StatGroupResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		homeStats, err = s.gameStats(gctx, game.ID, game.HomeTeam, home)
		return err
	})
	g.Go(func() error {
		var err error
		awayStats, err = s.gameStats(gctx, game.ID, game.AwayTeam, away)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, types.Wrap(op, err)
	}
	out := assemble.BoxScore(game, home, away, homeStats, awayStats)
	return &out, nil
}

// pick selects the revision of teamID active at asOf.
func pick(teamID string, asOf time.Time, revs []model.Revision) *model.Revision {
	var own []model.Revision
	for _, r := range revs {
		if r.EntityID == teamID {
			own = append(own, r)
		}
	}
	active := validity.ActiveAt(asOf, own)
	if len(active) == 0 {
		return nil
	}
	return &active[0]
}

// GameEvents returns a game's plays in order with base runners and
// outcomes attached.
func (s *Service) GameEvents(ctx context.Context, gameID string) (*assemble.GameEventsResult, error) {
	const op = "service.game_events"
	if err := s.ready(op); err != nil {
		return nil, err
	}
	game, err := s.store.Game(ctx, gameID)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	events, err := s.store.GameEvents(ctx, repository.EventQuery{GameID: gameID})
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	runners, outcomes, err := s.children(ctx, events)
	if err != nil {
		return nil, types.Wrap(op, err)
	}
	out := assemble.GameEvents(game, events, runners, outcomes)
	return &out, nil
}

// children loads base runners and outcomes of events concurrently.
func (s *Service) children(ctx context.Context, events []model.GameEvent) ([]model.BaseRunner, []model.Outcome, error) {
	if len(events) == 0 {
		return nil, nil, nil
	}
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	var (
		runners  []model.BaseRunner
		outcomes []model.Outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		runners, err = s.store.BaseRunners(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		outcomes, err = s.store.Outcomes(gctx, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return runners, outcomes, nil
}
