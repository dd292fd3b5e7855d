// Package aggregate derives rate statistics from per-entity count sets.
package aggregate

import (
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// CountSet maps an entity id to a count.
type CountSet map[string]float64

// Value is a formula output. Non-finite values are kept as computed and
// encode as JSON null.
type Value float64

// MarshalJSON encodes NaN and infinities as null.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Finite reports whether v is a real number.
func (v Value) Finite() bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Result is one entity's formula value.
type Result struct {
	ID    string `json:"id"`
	Value Value  `json:"value"`
}

// CountRow is one entity's raw count.
type CountRow struct {
	ID    string  `json:"id"`
	Count float64 `json:"count"`
}

// Formula reduces one value per input set, in argument order.
type Formula func(values ...float64) float64

// Combine applies f over the union of ids in sets. An id missing from a set
// contributes 0 for that argument. Results are ordered by id.
func Combine(f Formula, sets ...CountSet) []Result {
	ids := map[string]struct{}{}
	for _, s := range sets {
		for id := range s {
			ids[id] = struct{}{}
		}
	}
	out := make([]Result, 0, len(ids))
	args := make([]float64, len(sets))
	for id := range ids {
		for i, s := range sets {
			args[i] = s[id]
		}
		out = append(out, Result{ID: id, Value: Value(f(args...))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ToSet converts results back into a count set so they can feed another
// formula.
func ToSet(results []Result) CountSet {
	s := make(CountSet, len(results))
	for _, r := range results {
		s[r.ID] = float64(r.Value)
	}
	return s
}

// Rows converts a count set into ordered rows.
func (s CountSet) Rows() []CountRow {
	out := make([]CountRow, 0, len(s))
	for id, n := range s {
		out = append(out, CountRow{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Fixed formulas. Division by zero is not special cased.
var (
	BattingAverage Formula = func(v ...float64) float64 { return v[0] / v[1] }

	OnBasePercentage Formula = func(v ...float64) float64 { return v[0] / v[1] }

	Slugging Formula = func(v ...float64) float64 {
		return (v[0] + 2*v[1] + 3*v[2] + 4*v[3]) / v[4]
	}

	Sum Formula = func(v ...float64) float64 {
		var total float64
		for _, x := range v {
			total += x
		}
		return total
	}

	// WHIP takes hits allowed, walks allowed and outs recorded.
	WHIP Formula = func(v ...float64) float64 { return (v[0] + v[1]) / (v[2] / 3) }

	// ERA takes earned runs and outs recorded; 27 outs make nine innings.
	ERA Formula = func(v ...float64) float64 { return 27 * (v[0] / v[1]) }
)
