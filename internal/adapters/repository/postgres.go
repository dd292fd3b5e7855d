package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/assemble"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/pkg/logger"
	"github.com/okian/datablase/pkg/metrics"
)

// Postgres reads the published league views.
type Postgres struct {
	db  *sql.DB
	log logger.Logger
}

var _ Store = (*Postgres)(nil)

// OpenPostgres opens a pool against dsn and checks connectivity.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	const op = "repository.open_postgres"
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, types.WrapKind(op, ErrOpen, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetMaxIdleConns(s.maxIdleConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, types.WrapKind(op, ErrOpen, err)
	}
	s.log.Info(ctx, "postgres store ready",
		logger.Int("max_open_conns", s.maxOpenConns),
		logger.Duration("conn_max_lifetime", s.connMaxLifetime))
	return &Postgres{db: db, log: s.log}, nil
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) observe(ctx context.Context, op string, start time.Time, rows int, err error) {
	ms := metrics.Since(start)
	metrics.RecordStoreQuery(op, ms, rows, err)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		metrics.RecordErrorByComponent("repository", op)
		p.log.Error(ctx, "store query failed", logger.String("operation", op), logger.Error(err))
		return
	}
	p.log.Debug(ctx, "store query", logger.String("operation", op), logger.Int("rows", rows), logger.Float64("duration_ms", ms))
}

// records runs a query and scans every row into a Record keyed by column.
func (p *Postgres) records(ctx context.Context, op, query string, args ...any) (out []model.Record, err error) {
	start := time.Now()
	defer func() { p.observe(ctx, op, start, len(out), err) }()

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, types.Wrap(op, fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, types.Wrap(op, fmt.Errorf("columns: %w", err))
	}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, types.Wrap(op, fmt.Errorf("scan: %w", err))
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			rec[c.Name()] = normalize(vals[i], c.DatabaseTypeName())
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.Wrap(op, fmt.Errorf("iterate: %w", err))
	}
	return out, nil
}

// normalize converts driver values into plain scalars. Numeric columns
// arrive as text and become float64.
func normalize(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch dbType {
	case "NUMERIC", "DECIMAL", "FLOAT4", "FLOAT8":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	}
	return string(b)
}

// LatestSeason implements temporal.TimeMapReader.
func (p *Postgres) LatestSeason(ctx context.Context, eventType string) (int, error) {
	const op = "repository.latest_season"
	q := fmt.Sprintf("SELECT MAX(season) FROM %s", quote(relTimeMap))
	var args []any
	if eventType != "" {
		q += " WHERE type = $1"
		args = append(args, eventType)
	}
	return p.maxInt(ctx, op, "time map is empty", q, args...)
}

// LatestDay implements temporal.TimeMapReader.
func (p *Postgres) LatestDay(ctx context.Context, season int) (int, error) {
	const op = "repository.latest_day"
	q := fmt.Sprintf("SELECT MAX(day) FROM %s WHERE season = $1", quote(relTimeMap))
	return p.maxInt(ctx, op, fmt.Sprintf("no days recorded for season %d", season), q, season)
}

func (p *Postgres) maxInt(ctx context.Context, op, missing, query string, args ...any) (n int, err error) {
	start := time.Now()
	defer func() { p.observe(ctx, op, start, 1, err) }()
	var v sql.NullInt64
	if err := p.db.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		return 0, types.Wrap(op, err)
	}
	if !v.Valid {
		return 0, types.NotFoundf(op, "%s", missing)
	}
	return int(v.Int64), nil
}

// DayRange implements temporal.TimeMapReader.
func (p *Postgres) DayRange(ctx context.Context, season int, phaseIDs []int) (first, last int, err error) {
	const op = "repository.day_range"
	start := time.Now()
	defer func() { p.observe(ctx, op, start, 1, err) }()
	q := fmt.Sprintf("SELECT MIN(day), MAX(day) FROM %s WHERE season = $1 AND phase_id = ANY($2)", quote(relTimeMap))
	var lo, hi sql.NullInt64
	if err := p.db.QueryRowContext(ctx, q, season, pq.Array(int64s(phaseIDs))).Scan(&lo, &hi); err != nil {
		return 0, 0, types.Wrap(op, err)
	}
	if !lo.Valid || !hi.Valid {
		return 0, 0, types.NotFoundf(op, "no regular season days recorded for season %d", season)
	}
	return int(lo.Int64), int(hi.Int64), nil
}

// DayTimestamp implements temporal.TimeMapReader.
func (p *Postgres) DayTimestamp(ctx context.Context, season, day int) (ts time.Time, err error) {
	const op = "repository.day_timestamp"
	start := time.Now()
	defer func() { p.observe(ctx, op, start, 1, err) }()
	q := fmt.Sprintf("SELECT first_time FROM %s WHERE season = $1 AND day = $2 ORDER BY first_time LIMIT 1", quote(relTimeMap))
	if err := p.db.QueryRowContext(ctx, q, season, day).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, types.NotFoundf(op, "no time map entry for season %d day %d", season, day)
		}
		return time.Time{}, types.Wrap(op, err)
	}
	return ts, nil
}

// SeasonPhases implements temporal.TimeMapReader.
func (p *Postgres) SeasonPhases(ctx context.Context) ([]model.SeasonPhase, error) {
	const op = "repository.season_phases"
	recs, err := p.records(ctx, op, fmt.Sprintf("SELECT DISTINCT season, phase_id FROM %s ORDER BY season, phase_id", quote(relTimeMap)))
	if err != nil {
		return nil, err
	}
	out := make([]model.SeasonPhase, 0, len(recs))
	for _, r := range recs {
		s, _ := r.Int("season")
		ph, _ := r.Int("phase_id")
		out = append(out, model.SeasonPhase{Season: s, PhaseID: ph})
	}
	return out, nil
}

// Count implements aggregate.CountReader.
func (p *Postgres) Count(ctx context.Context, spec aggregate.CountSpec, ids []string) (aggregate.CountSet, error) {
	op := "repository.count." + string(spec.Name)
	q, args := buildCount(spec, ids)
	recs, err := p.records(ctx, op, q, args...)
	if err != nil {
		return nil, err
	}
	set := make(aggregate.CountSet, len(recs))
	for _, r := range recs {
		n, _ := r.Float("count")
		set[r.String("id")] = n
	}
	return set, nil
}

// TeamRevisions implements Store.
func (p *Postgres) TeamRevisions(ctx context.Context, q RevisionQuery) ([]model.Revision, error) {
	return p.revisions(ctx, "repository.team_revisions", relTeams, TeamIDField, q)
}

// PlayerRevisions implements Store.
func (p *Postgres) PlayerRevisions(ctx context.Context, q RevisionQuery) ([]model.Revision, error) {
	return p.revisions(ctx, "repository.player_revisions", relPlayers, PlayerIDField, q)
}

func (p *Postgres) revisions(ctx context.Context, op, relation, idField string, q RevisionQuery) ([]model.Revision, error) {
	query, args := buildRevisions(relation, idField, q)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	return toRevisions(op, idField, recs)
}

func toRevisions(op, idField string, recs []model.Record) ([]model.Revision, error) {
	out := make([]model.Revision, 0, len(recs))
	for _, r := range recs {
		rev, err := model.NewRevision(idField, r)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		out = append(out, rev)
	}
	return out, nil
}

// StatRows implements Store.
func (p *Postgres) StatRows(ctx context.Context, q StatsQuery) ([]model.StatRow, error) {
	op := "repository.stat_rows." + string(q.Selection.Source.Group)
	query, args := buildStats(q)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]model.StatRow, len(recs))
	for i, r := range recs {
		out[i] = splitAux(r)
	}
	return out, nil
}

// splitAux separates the aliased auxiliary columns of a joined row.
func splitAux(r model.Record) model.StatRow {
	present, _ := r.Bool(auxPresent)
	row := model.StatRow{Values: make(model.Record, len(r))}
	if present {
		row.Aux = model.Record{}
	}
	for k, v := range r {
		switch {
		case k == auxPresent:
		case strings.HasPrefix(k, auxPrefix):
			if present {
				row.Aux[strings.TrimPrefix(k, auxPrefix)] = v
			}
		default:
			row.Values[k] = v
		}
	}
	return row
}

// Leaders implements Store.
func (p *Postgres) Leaders(ctx context.Context, q LeaderQuery) ([]assemble.LeaderRow, error) {
	const op = "repository.leaders"
	query, args := buildLeaders(q)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]assemble.LeaderRow, len(recs))
	for i, r := range recs {
		rank, _ := r.Int("rank")
		out[i] = assemble.LeaderRow{Category: q.Category.Name, Rank: rank, Value: r["value"], Record: r}
	}
	return out, nil
}

// Games implements Store.
func (p *Postgres) Games(ctx context.Context, q GameQuery) ([]model.Game, error) {
	const op = "repository.games"
	query, args := buildGames(q)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	return toGames(op, recs)
}

func toGames(op string, recs []model.Record) ([]model.Game, error) {
	out := make([]model.Game, 0, len(recs))
	for _, r := range recs {
		g, err := model.NewGame(r)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Game implements Store.
func (p *Postgres) Game(ctx context.Context, gameID string) (model.Game, error) {
	const op = "repository.game"
	recs, err := p.records(ctx, op, fmt.Sprintf("SELECT * FROM %s WHERE game_id = $1", quote(relGames)), gameID)
	if err != nil {
		return model.Game{}, err
	}
	if len(recs) == 0 {
		return model.Game{}, types.NotFoundf(op, "game %s not found", gameID)
	}
	g, err := model.NewGame(recs[0])
	if err != nil {
		return model.Game{}, types.Wrap(op, err)
	}
	return g, nil
}

// GameEvents implements Store.
func (p *Postgres) GameEvents(ctx context.Context, q EventQuery) ([]model.GameEvent, error) {
	const op = "repository.game_events"
	query, args := buildEvents(q)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	return toEvents(op, recs)
}

func toEvents(op string, recs []model.Record) ([]model.GameEvent, error) {
	out := make([]model.GameEvent, 0, len(recs))
	for _, r := range recs {
		ev, err := model.NewGameEvent(r)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// BaseRunners implements Store.
func (p *Postgres) BaseRunners(ctx context.Context, eventIDs []int64) ([]model.BaseRunner, error) {
	const op = "repository.base_runners"
	children, err := p.children(ctx, op, relBaseRunners, eventIDs)
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
func (p *Postgres) Outcomes(ctx context.Context, eventIDs []int64) ([]model.Outcome, error) {
	const op = "repository.outcomes"
	children, err := p.children(ctx, op, relOutcomes, eventIDs)
	if err != nil {
		return nil, err
	}
	out := make([]model.Outcome, len(children))
	for i, c := range children {
		out[i] = model.Outcome(c)
	}
	return out, nil
}

func (p *Postgres) children(ctx context.Context, op, relation string, eventIDs []int64) ([]model.Child, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	query, args := buildChildren(relation, eventIDs)
	recs, err := p.records(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	return toChildren(op, recs)
}

func toChildren(op string, recs []model.Record) ([]model.Child, error) {
	out := make([]model.Child, 0, len(recs))
	for _, r := range recs {
		c, err := model.NewChild(r)
		if err != nil {
			return nil, types.Wrap(op, err)
		}
		out = append(out, c)
	}
	return out, nil
}
