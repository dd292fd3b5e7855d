package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/internal/domain/types"
)

// pathID reads and validates a URL parameter.
func pathID(op string, r *http.Request, name string) (string, error) {
	req := pathRequest{ID: chi.URLParam(r, name)}
	if err := check(op, req); err != nil {
		return "", err
	}
	return req.ID, nil
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Config(r.Context())
	s.one(w, r, res, err)
}

func (s *Server) handleSeasons(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Seasons(r.Context())
	s.list(w, r, res, err)
}

func (s *Server) handleSeason(w http.ResponseWriter, r *http.Request) {
	p, err := types.ParseTimeParam("season", chi.URLParam(r, "season"), true)
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	res, err := s.deps.Season(r.Context(), p)
	s.one(w, r, res, err)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	p := service.TeamsParams{Season: q.time("season")}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	res, err := s.deps.Teams(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	const op = "api.team"
	id, err := pathID(op, r, "teamIdOrSlug")
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	q := newQuery(r)
	p := service.TeamParams{IDOrSlug: id, Season: q.time("season")}
	if q.err != nil {
		s.one(w, r, nil, q.err)
		return
	}
	res, err := s.deps.Team(r.Context(), p)
	s.one(w, r, res, err)
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster"
	q := newQuery(r)
	req := rosterRequest{TeamID: chi.URLParam(r, "teamIdOrSlug"), Position: q.str("position")}
	p := service.RosterParams{
		Season:         q.time("season"),
		ExcludeShadows: !q.bool("includeShadows", true),
	}
	if q.err == nil {
		q.fail(check(op, req))
	}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	p.TeamID, p.Position = req.TeamID, req.Position
	res, err := s.deps.Roster(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	const op = "api.players"
	q := newQuery(r)
	req := playersRequest{
		SortField: q.str("sortField"),
		Skip:      q.int("skip"),
		Limit:     q.int("limit"),
		Fields:    q.list("fields"),
	}
	p := service.PlayersParams{Season: q.time("season")}
	pool, err := types.ParsePlayerPool(q.str("playerPool"))
	q.fail(err)
	order, err := types.ParseOrder(q.str("order"), types.OrderDesc)
	q.fail(err)
	if q.err == nil {
		q.fail(check(op, req))
	}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	p.Pool, p.Order = pool, order
	p.SortField, p.Skip, p.Limit, p.Fields = req.SortField, req.Skip, req.Limit, req.Fields
	res, err := s.deps.Players(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID("api.player", r, "playerIdOrSlug")
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	res, err := s.deps.Player(r.Context(), id)
	s.one(w, r, res, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"
	q := newQuery(r)
	req := statsRequest{
		PlayerIDs: q.list("playerId"),
		TeamIDs:   q.list("teamId"),
		SortStat:  q.str("sortStat"),
		Limit:     q.int("limit"),
		Fields:    q.list("fields"),
	}
	p := service.StatsParams{Season: q.time("season")}
	if raw := q.str("group"); raw != "" {
		groups, err := types.ParseStatGroups(raw)
		q.fail(err)
		p.Groups = groups
	}
	if raw := q.str("type"); raw != "" {
		split, err := types.ParseSplitType(raw)
		q.fail(err)
		p.Split = split
	}
	gameType, err := types.ParseGameType(q.str("gameType"))
	q.fail(err)
	order, err := types.ParseOrder(q.str("order"), types.OrderDesc)
	q.fail(err)
	if q.err == nil {
		q.fail(check(op, req))
	}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	p.GameType, p.Order = gameType, order
	p.PlayerIDs, p.TeamIDs, p.SortStat, p.Limit, p.Fields = req.PlayerIDs, req.TeamIDs, req.SortStat, req.Limit, req.Fields
	res, err := s.deps.PlayerStats(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handleLeaders(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaders"
	q := newQuery(r)
	req := leadersRequest{Categories: q.list("leaderCategories"), Limit: q.int("limit")}
	p := service.LeadersParams{Season: q.time("season")}
	if raw := q.str("group"); raw != "" {
		groups, err := types.ParseStatGroups(raw)
		q.fail(err)
		p.Groups = groups
	}
	if raw := q.str("type"); raw != "" {
		split, err := types.ParseSplitType(raw)
		q.fail(err)
		p.Split = split
	}
	gameType, err := types.ParseGameType(q.str("gameType"))
	q.fail(err)
	if q.err == nil {
		q.fail(check(op, req))
	}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	p.GameType, p.Categories, p.Limit = gameType, req.Categories, req.Limit
	res, err := s.deps.Leaders(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	const op = "api.games"
	q := newQuery(r)
	req := gamesRequest{TeamIDs: q.list("teamId")}
	p := service.GamesParams{Season: q.time("season"), Day: q.time("day")}
	if q.err == nil {
		q.fail(check(op, req))
	}
	if q.err != nil {
		s.list(w, r, nil, q.err)
		return
	}
	p.TeamIDs = req.TeamIDs
	res, err := s.deps.Games(r.Context(), p)
	s.list(w, r, res, err)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID("api.game", r, "gameId")
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	res, err := s.deps.Game(r.Context(), id)
	s.one(w, r, res, err)
}

func (s *Server) handleBoxScore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID("api.boxscore", r, "gameId")
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	res, err := s.deps.BoxScore(r.Context(), id)
	s.one(w, r, res, err)
}

func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	id, err := pathID("api.game_events", r, "gameId")
	if err != nil {
		s.one(w, r, nil, err)
		return
	}
	res, err := s.deps.GameEvents(r.Context(), id)
	s.one(w, r, res, err)
}
