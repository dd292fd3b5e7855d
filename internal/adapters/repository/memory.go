package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/ordering"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/validity"
	"github.com/okian/datablase/internal/domain/views"
	"github.com/okian/datablase/pkg/logger"
	"github.com/okian/datablase/pkg/metrics"
)

// Memory serves a Dataset held in memory. It evaluates the same filters the
// Postgres store renders to SQL. The dataset is never modified.
type Memory struct {
	ds  *Dataset
	log logger.Logger
}

var _ Store = (*Memory)(nil)

// NewMemory wraps ds.
func NewMemory(ds *Dataset, opts ...Option) *Memory {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if ds == nil {
		ds = &Dataset{}
	}
	return &Memory{ds: ds, log: s.log}
}

// OpenMemory loads a fixture file into a Memory store.
func OpenMemory(ctx context.Context, path string, opts ...Option) (*Memory, error) {
	ds, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	m := NewMemory(ds, opts...)
	m.log.Info(ctx, "memory store ready",
		logger.String("fixture", path),
		logger.Int("time_map", len(ds.TimeMap)),
		logger.Int("games", len(ds.Games)),
		logger.Int("game_events", len(ds.GameEvents)))
	return m, nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }

func (m *Memory) observe(op string, start time.Time, rows int, err error) {
	metrics.RecordStoreQuery(op, metrics.Since(start), rows, err)
}

// LatestSeason implements temporal.TimeMapReader.
func (m *Memory) LatestSeason(_ context.Context, eventType string) (int, error) {
	const op = "repository.latest_season"
	defer m.observe(op, time.Now(), 1, nil)
	best, found := 0, false
	for _, e := range m.ds.TimeMap {
		if eventType != "" && e.Type != eventType {
			continue
		}
		if !found || e.Season > best {
			best, found = e.Season, true
		}
	}
	if !found {
		return 0, types.NotFoundf(op, "time map is empty")
	}
	return best, nil
}

// LatestDay implements temporal.TimeMapReader.
func (m *Memory) LatestDay(_ context.Context, season int) (int, error) {
	const op = "repository.latest_day"
	defer m.observe(op, time.Now(), 1, nil)
	best, found := 0, false
	for _, e := range m.ds.TimeMap {
		if e.Season == season && (!found || e.Day > best) {
			best, found = e.Day, true
		}
	}
	if !found {
		return 0, types.NotFoundf(op, "no days recorded for season %d", season)
	}
	return best, nil
}

// DayRange implements temporal.TimeMapReader.
func (m *Memory) DayRange(_ context.Context, season int, phaseIDs []int) (first, last int, err error) {
	const op = "repository.day_range"
	defer m.observe(op, time.Now(), 1, nil)
	phases := map[int]bool{}
	for _, id := range phaseIDs {
		phases[id] = true
	}
	found := false
	for _, e := range m.ds.TimeMap {
		if e.Season != season || !phases[e.PhaseID] {
			continue
		}
		if !found || e.Day < first {
			first = e.Day
		}
		if !found || e.Day > last {
			last = e.Day
		}
		found = true
	}
	if !found {
		return 0, 0, types.NotFoundf(op, "no regular season days recorded for season %d", season)
	}
	return first, last, nil
}

// DayTimestamp implements temporal.TimeMapReader.
func (m *Memory) DayTimestamp(_ context.Context, season, day int) (time.Time, error) {
	const op = "repository.day_timestamp"
	defer m.observe(op, time.Now(), 1, nil)
	var (
		best  time.Time
		found bool
	)
	for _, e := range m.ds.TimeMap {
		if e.Season == season && e.Day == day && (!found || e.FirstTime.Before(best)) {
			best, found = e.FirstTime, true
		}
	}
	if !found {
		return time.Time{}, types.NotFoundf(op, "no time map entry for season %d day %d", season, day)
	}
	return best, nil
}

// SeasonPhases implements temporal.TimeMapReader.
func (m *Memory) SeasonPhases(context.Context) ([]model.SeasonPhase, error) {
	const op = "repository.season_phases"
	seen := map[model.SeasonPhase]bool{}
	var out []model.SeasonPhase
	for _, e := range m.ds.TimeMap {
		sp := model.SeasonPhase{Season: e.Season, PhaseID: e.PhaseID}
		if !seen[sp] {
			seen[sp] = true
			out = append(out, sp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].PhaseID < out[j].PhaseID
	})
	m.observe(op, time.Now(), len(out), nil)
	return out, nil
}

// Count implements aggregate.CountReader.
func (m *Memory) Count(_ context.Context, spec aggregate.CountSpec, ids []string) (aggregate.CountSet, error) {
	start := time.Now()
	rows := m.ds.GameEvents
	if spec.Table == aggregate.TableBaseRunners {
		rows = m.ds.BaseRunners
	}
	only := set(ids)
	out := aggregate.CountSet{}
	for _, r := range rows {
		id := r.String(spec.GroupBy)
		if id == "" || (only != nil && !only[id]) || !spec.MatchAll(r) {
			continue
		}
		if spec.Sum == "" {
			out[id]++
			continue
		}
		n, _ := r.Float(spec.Sum)
		out[id] += n
	}
	m.observe("repository.count."+string(spec.Name), start, len(out), nil)
	return out, nil
}

// TeamRevisions implements Store.
func (m *Memory) TeamRevisions(_ context.Context, q RevisionQuery) ([]model.Revision, error) {
	return m.revisions("repository.team_revisions", m.ds.Teams, TeamIDField, q)
}

// PlayerRevisions implements Store.
func (m *Memory) PlayerRevisions(_ context.Context, q RevisionQuery) ([]model.Revision, error) {
	return m.revisions("repository.player_revisions", m.ds.Players, PlayerIDField, q)
}

func (m *Memory) revisions(op string, rows []model.Record, idField string, q RevisionQuery) (out []model.Revision, err error) {
	defer func(start time.Time) { m.observe(op, start, len(out), err) }(time.Now())
	values := set(q.Values)
	for _, r := range rows {
		if q.Field != "" && !values[r.String(q.Field)] {
			continue
		}
		if !matchesPool(r, q.Where) || excluded(r, q.Exclude) {
			continue
		}
		rev, err := model.NewRevision(idField, r)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		switch {
		case q.AllRevisions:
		case q.AsOf != nil:
			if !validity.IsActiveAt(rev, *q.AsOf) {
				continue
			}
		case rev.ValidUntil != nil:
			continue
		}
		out = append(out, rev)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].ValidFrom.After(out[j].ValidFrom)
	})
	return out, nil
}

func matchesPool(r model.Record, where types.PoolFilter) bool {
	for _, p := range where {
		if p.NotNull {
			if !r.Has(p.Field) {
				return false
			}
			continue
		}
		if !r.Has(p.Field) || r.String(p.Field) != p.Value {
			return false
		}
	}
	return true
}

func excluded(r model.Record, exclude types.PoolFilter) bool {
	for _, p := range exclude {
		if p.NotNull && r.Has(p.Field) {
			return true
		}
		if !p.NotNull && r.Has(p.Field) && r.String(p.Field) == p.Value {
			return true
		}
	}
	return false
}

// StatRows implements Store.
func (m *Memory) StatRows(_ context.Context, q StatsQuery) ([]model.StatRow, error) {
	sel := q.Selection
	src := sel.Source
	start := time.Now()
	players, teams := set(q.PlayerIDs), set(q.TeamIDs)

	auxSort := q.SortField != nil && src.IsAux(*q.SortField)
	var auxIndex map[string]model.Record
	if sel.IncludeAux() || auxSort {
		auxIndex = map[string]model.Record{}
		for _, r := range m.ds.Stats[src.Aux.Relation] {
			k := joinKey(r, src.Aux.JoinKeys)
			if _, dup := auxIndex[k]; !dup {
				auxIndex[k] = r
			}
		}
	}

	// Rows sort on the full source record so the sort stat need not be
	// projected; an auxiliary sort stat is copied in from the joined row.
	type sortable struct {
		row model.StatRow
		key model.Record
	}
	var rows []sortable
	for _, r := range m.ds.Stats[src.Relation] {
		if q.Season != nil && src.HasColumn(views.ColSeason) {
			if s, ok := r.Int(views.ColSeason); !ok || s != *q.Season {
				continue
			}
		}
		if players != nil && !players[r.String(views.ColPlayerID)] {
			continue
		}
		if teams != nil && src.HasColumn(views.ColTeamID) && !teams[r.String(views.ColTeamID)] {
			continue
		}
		if q.GameID != "" && src.HasColumn(views.ColGameID) && r.String(views.ColGameID) != q.GameID {
			continue
		}
		row := model.StatRow{Values: r.Project(sel.Columns())}
		key := r
		if auxIndex != nil {
			a, ok := auxIndex[joinKey(r, src.Aux.JoinKeys)]
			if ok && sel.IncludeAux() {
				row.Aux = a.Project(auxColumns(sel))
			}
			if auxSort {
				key = r.Clone()
				key[q.SortField.Column] = nil
				if ok {
					key[q.SortField.Column] = a[q.SortField.Column]
				}
			}
		}
		rows = append(rows, sortable{row: row, key: key})
	}

	keys := make([]ordering.Key, 0, 3)
	if q.SortField != nil {
		keys = append(keys, ordering.Key{Field: q.SortField.Column, Desc: q.Order != types.OrderAsc})
	}
	keys = append(keys, ordering.Asc(views.ColPlayerName), ordering.Asc(views.ColPlayerID))
	sort.SliceStable(rows, func(i, j int) bool { return ordering.Less(rows[i].key, rows[j].key, keys) })
	rows = ordering.Page(rows, 0, q.Limit)

	out := make([]model.StatRow, len(rows))
	for i, sr := range rows {
		out[i] = sr.row
	}

	m.observe("repository.stat_rows."+string(src.Group), start, len(out), nil)
	return out, nil
}

func auxColumns(sel views.Selection) []string {
	out := make([]string, len(sel.AuxFields))
	for i, fl := range sel.AuxFields {
		out[i] = fl.Column
	}
	return out
}

func joinKey(r model.Record, cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = r.String(c)
	}
	return strings.Join(parts, "\x00")
}

// Leaders implements Store. Equal values share a rank and the next distinct
// value skips ahead, as SQL RANK does.
func (m *Memory) Leaders(_ context.Context, q LeaderQuery) ([]assemble.LeaderRow, error) {
	const op = "repository.leaders"
	start := time.Now()
	col := q.Category.Column
	var rows []model.Record
	for _, r := range m.ds.Stats[q.Category.Relation] {
		if s, ok := r.Int(views.ColSeason); !ok || s != q.Season || !r.Has(col) {
			continue
		}
		rows = append(rows, r)
	}
	ordering.Sort(rows,
		ordering.Key{Field: col, Desc: !q.Category.LowerIsBetter},
		ordering.Asc(views.ColPlayerName),
		ordering.Asc(views.ColPlayerID))

	out := make([]assemble.LeaderRow, 0, len(rows))
	for i, r := range rows {
		rank := i + 1
		if i > 0 && ordering.Compare(r[col], rows[i-1][col]) == 0 {
			rank = out[i-1].Rank
		}
		out = append(out, assemble.LeaderRow{
			Category: q.Category.Name,
			Rank:     rank,
			Value:    r[col],
			Record:   r.Project([]string{views.ColPlayerID, views.ColPlayerName, views.ColSeason}),
		})
	}
	out = ordering.Page(out, 0, q.Limit)
	m.observe(op, start, len(out), nil)
	return out, nil
}

// Games implements Store.
func (m *Memory) Games(_ context.Context, q GameQuery) ([]model.Game, error) {
	const op = "repository.games"
	start := time.Now()
	teams := set(q.TeamIDs)
	var recs []model.Record
	for _, r := range m.ds.Games {
		if q.Season != nil {
			if s, _ := r.Int("season"); s != *q.Season {
				continue
			}
		}
		if q.Day != nil {
			if d, _ := r.Int("day"); d != *q.Day {
				continue
			}
		}
		if teams != nil && !teams[r.String("home_team")] && !teams[r.String("away_team")] {
			continue
		}
		recs = append(recs, r)
	}
	ordering.Sort(recs, ordering.Desc("season"), ordering.Asc("day"), ordering.Asc("game_id"))
	out, err := toGames(op, recs)
	m.observe(op, start, len(out), err)
	return out, err
}

// Game implements Store.
func (m *Memory) Game(_ context.Context, gameID string) (model.Game, error) {
	const op = "repository.game"
	defer m.observe(op, time.Now(), 1, nil)
	for _, r := range m.ds.Games {
		if r.String("game_id") == gameID {
			g, err := model.NewGame(r)
			if err != nil {
				return model.Game{}, types.Wrap(op, err)
			}
			return g, nil
		}
	}
	return model.Game{}, types.NotFoundf(op, "game %s not found", gameID)
}

// GameEvents implements Store.
func (m *Memory) GameEvents(_ context.Context, q EventQuery) ([]model.GameEvent, error) {
	const op = "repository.game_events"
	start := time.Now()
	var recs []model.Record
	for _, r := range m.ds.GameEvents {
		if q.PlayerID != "" && r.String("batter_id") != q.PlayerID && r.String("pitcher_id") != q.PlayerID {
			continue
		}
		if q.GameID != "" && r.String("game_id") != q.GameID {
			continue
		}
		if q.PitcherID != "" && r.String("pitcher_id") != q.PitcherID {
			continue
		}
		if q.BatterID != "" && r.String("batter_id") != q.BatterID {
			continue
		}
		recs = append(recs, r)
	}
	ordering.Sort(recs, ordering.Asc("game_id"), ordering.Asc("event_index"), ordering.Asc("id"))
	out, err := toEvents(op, recs)
	m.observe(op, start, len(out), err)
	return out, err
}

// BaseRunners implements Store.
func (m *Memory) BaseRunners(_ context.Context, eventIDs []int64) ([]model.BaseRunner, error) {
	children, err := m.children("repository.base_runners", m.ds.BaseRunners, eventIDs)
	if err != nil {
		return nil, err
	}
	out := make([]model.BaseRunner, len(children))
	for i, c := range children {
		out[i] = model.BaseRunner(c)
	}
	return out, nil
}

// Outcomes implements Store.
func (m *Memory) Outcomes(_ context.Context, eventIDs []int64) ([]model.Outcome, error) {
	children, err := m.children("repository.outcomes", m.ds.Outcomes, eventIDs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Outcome, len(children))
	for i, c := range children {
		out[i] = model.Outcome(c)
	}
	return out, nil
}

func (m *Memory) children(op string, rows []model.Record, eventIDs []int64) ([]model.Child, error) {
	start := time.Now()
	parents := make(map[int64]bool, len(eventIDs))
	for _, id := range eventIDs {
		parents[id] = true
	}
	var recs []model.Record
	for _, r := range rows {
		if id, ok := r.Int64("game_event_id"); ok && parents[id] {
			recs = append(recs, r)
		}
	}
	ordering.Sort(recs, ordering.Asc("id"))
	out, err := toChildren(op, recs)
	m.observe(op, start, len(out), err)
	return out, err
}

func set(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}
