package views

// Field maps a logical stat name to its storage column.
type Field struct {
	Name          string
	Column        string
	Relation      string
	LowerIsBetter bool
}

type fieldDef struct {
	name  string
	lower bool
}

func f(name string) fieldDef     { return fieldDef{name: name} }
func lower(name string) fieldDef { return fieldDef{name: name, lower: true} }

func bind(relation string, defs []fieldDef) []Field {
	out := make([]Field, len(defs))
	for i, d := range defs {
		out[i] = Field{Name: d.name, Column: d.name, Relation: relation, LowerIsBetter: d.lower}
	}
	return out
}

var hittingFields = []fieldDef{
	f("appearances"),
	f("plate_appearances"),
	f("at_bats"),
	f("hits"),
	f("singles"),
	f("doubles"),
	f("triples"),
	f("quadruples"),
	f("home_runs"),
	f("runs_batted_in"),
	f("walks"),
	lower("strikeouts"),
	f("hit_by_pitches"),
	f("sacrifice_bunts"),
	f("sacrifice_flies"),
	f("times_on_base"),
	f("total_bases"),
	lower("gidp"),
	f("batting_average"),
	f("on_base_percentage"),
	f("slugging"),
	f("on_base_slugging"),
	lower("at_bats_per_home_run"),
}

var baseRunningFields = []fieldDef{
	f("stolen_bases"),
	lower("caught_stealing"),
	f("runs"),
}

var runningFields = []fieldDef{
	f("stolen_bases"),
	lower("caught_stealing"),
	f("runs"),
	f("stolen_base_attempts"),
	f("stolen_base_percentage"),
}

var pitchingFields = []fieldDef{
	f("games"),
	f("wins"),
	lower("losses"),
	f("win_pct"),
	f("innings"),
	f("outs_recorded"),
	f("batters_faced"),
	lower("hits_allowed"),
	lower("home_runs_allowed"),
	lower("walks"),
	f("strikeouts"),
	lower("hit_by_pitches"),
	lower("runs_allowed"),
	lower("earned_runs"),
	lower("earned_run_average"),
	lower("whip"),
	f("strikeouts_per_nine"),
	lower("walks_per_nine"),
	lower("hits_per_nine"),
	lower("home_runs_per_nine"),
	f("strikeouts_per_walk"),
	f("quality_starts"),
	f("shutouts"),
}

var fieldingFields = []fieldDef{
	f("plays"),
	f("putouts"),
	f("assists"),
	lower("errors"),
	f("double_plays"),
}

// Default leader categories per group.
var leaderCategories = map[string][]string{
	"hitting":  {"batting_average", "home_runs", "hits", "runs_batted_in", "on_base_percentage", "slugging", "stolen_bases"},
	"pitching": {"earned_run_average", "wins", "strikeouts", "whip", "shutouts"},
	"running":  {"stolen_bases", "runs"},
	"fielding": {"putouts", "assists"},
}
