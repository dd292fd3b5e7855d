package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
)

// Relations outside the stat view registry.
const (
	relTimeMap     = "data.time_map"
	relTeams       = "data.teams"
	relPlayers     = "data.players_info_expanded_all"
	relGames       = "data.games"
	relEvents      = "data.game_events"
	relBaseRunners = "data.game_event_base_runners"
	relOutcomes    = "data.outcomes"
)

// Aliases used to carry auxiliary columns through a single stat query.
const (
	auxPrefix  = "aux__"
	auxPresent = "aux__present"
)

// builder accumulates positional arguments and AND-ed conditions.
type builder struct {
	args  []any
	where []string
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) and(format string, a ...any) {
	b.where = append(b.where, fmt.Sprintf(format, a...))
}

func (b *builder) clause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

// quote quotes an identifier, keeping a schema qualifier as its own part.
func quote(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func int64s(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func countTable(t aggregate.Table) string {
	if t == aggregate.TableBaseRunners {
		return relBaseRunners
	}
	return relEvents
}

func buildCount(spec aggregate.CountSpec, ids []string) (string, []any) {
	b := &builder{}
	group := quote(spec.GroupBy)
	b.and("%s IS NOT NULL", group)
	if len(ids) > 0 {
		b.and("%s = ANY(%s)", group, b.arg(pq.Array(ids)))
	}
	for _, c := range spec.Where {
		col := quote(c.Field)
		switch c.Op {
		case aggregate.OpTrue:
			b.and("%s", col)
		case aggregate.OpFalse:
			b.and("NOT %s", col)
		default:
			b.and("%s %s %s", col, c.Op, b.arg(c.Value))
		}
	}
	agg := "COUNT(*)"
	if spec.Sum != "" {
		agg = fmt.Sprintf("COALESCE(SUM(%s), 0)", quote(spec.Sum))
	}
	q := fmt.Sprintf("SELECT %s AS id, %s::float8 AS count FROM %s%s GROUP BY %s ORDER BY %s",
		group, agg, quote(countTable(spec.Table)), b.clause(), group, group)
	return q, b.args
}

func buildRevisions(relation, idField string, q RevisionQuery) (string, []any) {
	b := &builder{}
	if q.Field != "" {
		b.and("%s = ANY(%s)", quote(q.Field), b.arg(pq.Array(q.Values)))
	}
	switch {
	case q.AllRevisions:
	case q.AsOf != nil:
		t := b.arg(*q.AsOf)
		b.and("valid_from <= %s AND (valid_until IS NULL OR valid_until >= %s)", t, t)
	default:
		b.and("valid_until IS NULL")
	}
	for _, p := range q.Where {
		if p.NotNull {
			b.and("%s IS NOT NULL", quote(p.Field))
			continue
		}
		b.and("%s = %s", quote(p.Field), b.arg(p.Value))
	}
	for _, p := range q.Exclude {
		if p.NotNull {
			b.and("%s IS NULL", quote(p.Field))
			continue
		}
		b.and("%s IS DISTINCT FROM %s", quote(p.Field), b.arg(p.Value))
	}
	id := quote(idField)
	return fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s, valid_from DESC", quote(relation), b.clause(), id), b.args
}

func buildStats(q StatsQuery) (string, []any) {
	sel := q.Selection
	src := sel.Source
	b := &builder{}

	cols := make([]string, 0, len(src.Identity)+len(sel.Fields)+len(sel.AuxFields)+1)
	for _, c := range src.Identity {
		cols = append(cols, "s."+quote(c))
	}
	for _, fl := range sel.Fields {
		cols = append(cols, "s."+quote(fl.Column))
	}
	from := quote(src.Relation) + " s"
	auxSort := q.SortField != nil && src.IsAux(*q.SortField)
	if sel.IncludeAux() || auxSort {
		aux := src.Aux
		if sel.IncludeAux() {
			cols = append(cols, fmt.Sprintf("(a.%s IS NOT NULL) AS %s", quote(aux.JoinKeys[0]), quote(auxPresent)))
			for _, fl := range sel.AuxFields {
				cols = append(cols, fmt.Sprintf("a.%s AS %s", quote(fl.Column), quote(auxPrefix+fl.Column)))
			}
		}
		on := make([]string, len(aux.JoinKeys))
		for i, k := range aux.JoinKeys {
			on[i] = fmt.Sprintf("a.%s = s.%s", quote(k), quote(k))
		}
		from += fmt.Sprintf(" LEFT JOIN %s a ON %s", quote(aux.Relation), strings.Join(on, " AND "))
	}

	if q.Season != nil && src.HasColumn(views.ColSeason) {
		b.and("s.%s = %s", quote(views.ColSeason), b.arg(*q.Season))
	}
	if len(q.PlayerIDs) > 0 {
		b.and("s.%s = ANY(%s)", quote(views.ColPlayerID), b.arg(pq.Array(q.PlayerIDs)))
	}
	if len(q.TeamIDs) > 0 && src.HasColumn(views.ColTeamID) {
		b.and("s.%s = ANY(%s)", quote(views.ColTeamID), b.arg(pq.Array(q.TeamIDs)))
	}
	if q.GameID != "" && src.HasColumn(views.ColGameID) {
		b.and("s.%s = %s", quote(views.ColGameID), b.arg(q.GameID))
	}

	order := make([]string, 0, 3)
	if q.SortField != nil {
		dir := "DESC"
		if q.Order == types.OrderAsc {
			dir = "ASC"
		}
		alias := "s"
		if auxSort {
			alias = "a"
		}
		order = append(order, fmt.Sprintf("%s.%s %s NULLS LAST", alias, quote(q.SortField.Column), dir))
	}
	order = append(order,
		fmt.Sprintf("s.%s ASC", quote(views.ColPlayerName)),
		fmt.Sprintf("s.%s ASC", quote(views.ColPlayerID)))

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(cols, ", "), from, b.clause(), strings.Join(order, ", "))
	if q.Limit > 0 {
		sql += " LIMIT " + b.arg(q.Limit)
	}
	return sql, b.args
}

func buildLeaders(q LeaderQuery) (string, []any) {
	b := &builder{}
	col := "s." + quote(q.Category.Column)
	dir := "DESC"
	if q.Category.LowerIsBetter {
		dir = "ASC"
	}
	b.and("s.%s = %s", quote(views.ColSeason), b.arg(q.Season))
	b.and("%s IS NOT NULL", col)
	sql := fmt.Sprintf(
		"SELECT s.%s, s.%s, s.%s, %s AS value, RANK() OVER (ORDER BY %s %s) AS rank FROM %s s%s ORDER BY rank, s.%s, s.%s",
		quote(views.ColPlayerID), quote(views.ColPlayerName), quote(views.ColSeason),
		col, col, dir, quote(q.Category.Relation), b.clause(),
		quote(views.ColPlayerName), quote(views.ColPlayerID))
	if q.Limit > 0 {
		sql += " LIMIT " + b.arg(q.Limit)
	}
	return sql, b.args
}

func buildGames(q GameQuery) (string, []any) {
	b := &builder{}
	if q.Season != nil {
		b.and("season = %s", b.arg(*q.Season))
	}
	if q.Day != nil {
		b.and("day = %s", b.arg(*q.Day))
	}
	if len(q.TeamIDs) > 0 {
		ids := b.arg(pq.Array(q.TeamIDs))
		b.and("(home_team = ANY(%s) OR away_team = ANY(%s))", ids, ids)
	}
	return fmt.Sprintf("SELECT * FROM %s%s ORDER BY season DESC, day ASC, game_id ASC", quote(relGames), b.clause()), b.args
}

func buildEvents(q EventQuery) (string, []any) {
	b := &builder{}
	if q.PlayerID != "" {
		p := b.arg(q.PlayerID)
		b.and("(batter_id = %s OR pitcher_id = %s)", p, p)
	}
	if q.GameID != "" {
		b.and("game_id = %s", b.arg(q.GameID))
	}
	if q.PitcherID != "" {
		b.and("pitcher_id = %s", b.arg(q.PitcherID))
	}
	if q.BatterID != "" {
		b.and("batter_id = %s", b.arg(q.BatterID))
	}
	return fmt.Sprintf("SELECT * FROM %s%s ORDER BY game_id, event_index, id", quote(relEvents), b.clause()), b.args
}

func buildChildren(relation string, eventIDs []int64) (string, []any) {
	b := &builder{}
	b.and("game_event_id = ANY(%s)", b.arg(pq.Array(eventIDs)))
	return fmt.Sprintf("SELECT * FROM %s%s ORDER BY id", quote(relation), b.clause()), b.args
}
