// Package ordering sorts records by several keys with explicit null
// placement.
package ordering

import (
	"sort"
	"strings"

	"github.com/okian/datablase/internal/domain/model"
)

// Key is one sort term. Nulls sort after every value unless NullsFirst.
type Key struct {
	Field      string
	Desc       bool
	NullsFirst bool
}

// Asc and Desc build keys with nulls last.
func Asc(field string) Key  { return Key{Field: field} }
func Desc(field string) Key { return Key{Field: field, Desc: true} }

// Compare orders two non-nil scalar values. Numbers compare numerically,
// times chronologically, bools false before true, everything else as text.
func Compare(a, b any) int {
	ra, rb := model.Record{"v": a}, model.Record{"v": b}
	if ta, ok := ra.Time("v"); ok {
		if tb, ok := rb.Time("v"); ok {
			return ta.Compare(tb)
		}
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		if fa, ok := ra.Float("v"); ok {
			if fb, ok := rb.Float("v"); ok {
				switch {
				case fa < fb:
					return -1
				case fa > fb:
					return 1
				default:
					return 0
				}
			}
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(ra.String("v"), rb.String("v"))
}

// Less reports whether a sorts before b under keys.
func Less(a, b model.Record, keys []Key) bool {
	for _, k := range keys {
		if c := compareKey(a, b, k); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareKey(a, b model.Record, k Key) int {
	an, bn := !a.Has(k.Field), !b.Has(k.Field)
	switch {
	case an && bn:
		return 0
	case an:
		if k.NullsFirst {
			return -1
		}
		return 1
	case bn:
		if k.NullsFirst {
			return 1
		}
		return -1
	}
	c := Compare(a[k.Field], b[k.Field])
	if k.Desc {
		return -c
	}
	return c
}

// Sort orders recs in place. Equal records keep their input order.
func Sort(recs []model.Record, keys ...Key) {
	sort.SliceStable(recs, func(i, j int) bool { return Less(recs[i], recs[j], keys) })
}

// Page applies skip and limit. A limit of zero or less means no limit.
func Page[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
