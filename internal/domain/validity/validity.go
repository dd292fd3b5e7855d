// Package validity selects which revision of a slowly changing entity was in
// effect at an instant.
package validity

import (
	"sort"
	"time"

	"github.com/okian/datablase/internal/domain/model"
)

// Anchor picks the instant used when an interval stands in for a point.
type Anchor int

const (
	// AnchorEnd resolves a season to its last regular season day.
	AnchorEnd Anchor = iota
	// AnchorStart resolves a season to its first regular season day.
	AnchorStart
)

// Instant returns the as-of instant for iv.
func Instant(iv model.SeasonInterval, a Anchor) time.Time {
	if a == AnchorStart {
		return iv.Start
	}
	return iv.End
}

// IsActiveAt reports whether rev was in effect at t. Both bounds are inclusive.
func IsActiveAt(rev model.Revision, t time.Time) bool {
	if rev.ValidFrom.After(t) {
		return false
	}
	return rev.ValidUntil == nil || !rev.ValidUntil.Before(t)
}

// SelectActive returns the revision of entityID active at t. When several
// match, the latest ValidFrom wins and ties keep the earlier candidate.
func SelectActive(entityID string, t time.Time, candidates []model.Revision) (model.Revision, bool) {
	var (
		best  model.Revision
		found bool
	)
	for _, rev := range candidates {
		if rev.EntityID != entityID || !IsActiveAt(rev, t) {
			continue
		}
		if !found || rev.ValidFrom.After(best.ValidFrom) {
			best, found = rev, true
		}
	}
	return best, found
}

// ActiveAt returns one revision per entity active at t, ordered by entity id.
func ActiveAt(t time.Time, candidates []model.Revision) []model.Revision {
	return distinct(candidates, func(rev model.Revision) bool { return IsActiveAt(rev, t) })
}

// Latest returns the newest revision per entity regardless of validity,
// ordered by entity id.
func Latest(candidates []model.Revision) []model.Revision {
	return distinct(candidates, func(model.Revision) bool { return true })
}

func distinct(candidates []model.Revision, keep func(model.Revision) bool) []model.Revision {
	best := map[string]int{}
	for i, rev := range candidates {
		if !keep(rev) {
			continue
		}
		j, ok := best[rev.EntityID]
		if !ok || rev.ValidFrom.After(candidates[j].ValidFrom) {
			best[rev.EntityID] = i
		}
	}
	out := make([]model.Revision, 0, len(best))
	for _, i := range best {
		out = append(out, candidates[i])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].EntityID < out[b].EntityID })
	return out
}
