package aggregate

import (
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
)

// rowFormula fills Field from the row's own columns when the source did not
// precompute it.
type rowFormula struct {
	Field   string
	Inputs  []string
	Formula Formula
}

// Evaluated in order, so later entries may read earlier results.
var rowFormulas = map[types.StatGroup][]rowFormula{
	types.GroupHitting: {
		{Field: "batting_average", Inputs: []string{"hits", "at_bats"}, Formula: BattingAverage},
		{Field: "on_base_percentage", Inputs: []string{"times_on_base", "plate_appearances"}, Formula: OnBasePercentage},
		{Field: "slugging", Inputs: []string{"singles", "doubles", "triples", "home_runs", "at_bats"}, Formula: Slugging},
		{Field: "on_base_slugging", Inputs: []string{"on_base_percentage", "slugging"}, Formula: Sum},
	},
	types.GroupPitching: {
		{Field: "whip", Inputs: []string{"hits_allowed", "walks", "outs_recorded"}, Formula: WHIP},
		{Field: "earned_run_average", Inputs: []string{"earned_runs", "outs_recorded"}, Formula: ERA},
	},
}

// FillDerived computes missing rate fields of a stat row in place. want
// limits which fields are written; nil means all. A field is only filled when
// it is absent and every input is numeric.
func FillDerived(group types.StatGroup, stat model.Record, want func(field string) bool) {
	for _, rf := range rowFormulas[group] {
		if stat.Has(rf.Field) || (want != nil && !want(rf.Field)) {
			continue
		}
		args := make([]float64, len(rf.Inputs))
		ok := true
		for i, in := range rf.Inputs {
			v, isNum := numeric(stat[in])
			if !isNum {
				ok = false
				break
			}
			args[i] = v
		}
		if ok {
			stat[rf.Field] = Value(rf.Formula(args...))
		}
	}
}

func numeric(v any) (float64, bool) {
	if val, ok := v.(Value); ok {
		return float64(val), true
	}
	return model.Record{"v": v}.Float("v")
}

// Match reports whether rec satisfies c.
func (c Condition) Match(rec model.Record) bool {
	switch c.Op {
	case OpTrue:
		b, ok := rec.Bool(c.Field)
		return ok && b
	case OpFalse:
		b, ok := rec.Bool(c.Field)
		return ok && !b
	case OpGt:
		f, ok := rec.Float(c.Field)
		want, wok := model.Record{"v": c.Value}.Float("v")
		return ok && wok && f > want
	case OpEq, OpNe:
		if !rec.Has(c.Field) {
			return false
		}
		eq := rec.String(c.Field) == model.Record{"v": c.Value}.String("v")
		if c.Op == OpEq {
			return eq
		}
		return !eq
	}
	return false
}

// MatchAll reports whether rec satisfies every condition of s.
func (s CountSpec) MatchAll(rec model.Record) bool {
	for _, c := range s.Where {
		if !c.Match(rec) {
			return false
		}
	}
	return true
}
