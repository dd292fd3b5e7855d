// Package types contains the enumerations and parameter types shared by the
// stats core and its HTTP surface.
package types

import (
	"sort"
	"strings"
)

// StatGroup names a family of statistics.
type StatGroup string

const (
	GroupHitting  StatGroup = "hitting"
	GroupPitching StatGroup = "pitching"
	GroupRunning  StatGroup = "running"
	GroupFielding StatGroup = "fielding"
)

// StatGroups lists the supported groups in response order.
var StatGroups = []StatGroup{GroupHitting, GroupPitching, GroupRunning, GroupFielding}

// SplitType selects how stats are partitioned over time.
type SplitType string

const (
	SplitSeason         SplitType = "season"
	SplitSeasonCombined SplitType = "seasonCombined"
	SplitCareer         SplitType = "career"

	// SplitGame is used internally for per-game box score lines.
	SplitGame SplitType = "game"
)

// SplitTypes lists the split types accepted from clients.
var SplitTypes = []SplitType{SplitSeason, SplitSeasonCombined, SplitCareer}

// GameType distinguishes regular season from postseason play.
type GameType string

const (
	GameRegular    GameType = "R"
	GamePostseason GameType = "P"
)

// GameTypes lists the accepted game types.
var GameTypes = []GameType{GameRegular, GamePostseason}

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// PlayerPool is a named, fixed player predicate.
type PlayerPool string

const (
	PoolAll      PlayerPool = "all"
	PoolCurrent  PlayerPool = "current"
	PoolShadows  PlayerPool = "shadows"
	PoolDeceased PlayerPool = "deceased"
)

// PlayerPools lists the accepted pools.
var PlayerPools = []PlayerPool{PoolAll, PoolCurrent, PoolShadows, PoolDeceased}

// Predicate is one column condition of a pool filter. With NotNull set the
// value is ignored and the column must be non-null.
type Predicate struct {
	Field   string
	Value   string
	NotNull bool
}

// PoolFilter is a conjunction of predicates.
type PoolFilter []Predicate

var poolFilters = map[PlayerPool]PoolFilter{
	PoolAll: nil,
	PoolCurrent: {
		{Field: "current_state", Value: "active"},
		{Field: "current_location", Value: "main_roster"},
	},
	PoolShadows: {
		{Field: "current_state", Value: "active"},
		{Field: "current_location", Value: "shadows"},
	},
	PoolDeceased: {
		{Field: "current_state", Value: "deceased"},
		// incinerations not attributed to an event are excluded
		{Field: "incineration_phase", NotNull: true},
	},
}

// Filter returns the fixed predicate for the pool.
func (p PlayerPool) Filter() PoolFilter {
	return poolFilters[p]
}

// ParseStatGroups parses a comma separated list of groups, keeping the
// first occurrence of each.
func ParseStatGroups(raw string) ([]StatGroup, error) {
	const op = "types.parse_stat_groups"
	var out []StatGroup
	seen := map[StatGroup]bool{}
	for _, part := range SplitList(raw) {
		g := StatGroup(part)
		if !contains(StatGroups, g) {
			return nil, Errorf(op, ErrValidation,
				"unsupported value provided for 'group' parameter: %s. Available groups: %s", part, join(StatGroups))
		}
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return nil, Errorf(op, ErrValidation, "group is required. Available groups: %s", join(StatGroups))
	}
	return out, nil
}

// ParseSplitType validates a client supplied split type.
func ParseSplitType(raw string) (SplitType, error) {
	const op = "types.parse_split_type"
	s := SplitType(strings.TrimSpace(raw))
	if s == "" {
		return "", Errorf(op, ErrValidation, "type is required. Available types: %s", join(SplitTypes))
	}
	if !contains(SplitTypes, s) {
		return "", Errorf(op, ErrValidation,
			"unsupported value provided for 'type' parameter: %s. Available types: %s", raw, join(SplitTypes))
	}
	return s, nil
}

// ParseGameType validates a game type, defaulting to regular season.
func ParseGameType(raw string) (GameType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GameRegular, nil
	}
	g := GameType(strings.ToUpper(raw))
	if !contains(GameTypes, g) {
		return "", Errorf("types.parse_game_type", ErrValidation,
			"unsupported value provided for 'gameType' parameter: %s. Available game types: %s", raw, join(GameTypes))
	}
	return g, nil
}

// ParseOrder validates a sort direction, returning def when raw is empty.
func ParseOrder(raw string, def Order) (Order, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return def, nil
	}
	o := Order(raw)
	if o != OrderAsc && o != OrderDesc {
		return "", Errorf("types.parse_order", ErrValidation,
			"unsupported value provided for 'order' parameter: %s. Available orders: asc, desc", raw)
	}
	return o, nil
}

// ParsePlayerPool validates a pool name, defaulting to all.
func ParsePlayerPool(raw string) (PlayerPool, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return PoolAll, nil
	}
	p := PlayerPool(raw)
	if !contains(PlayerPools, p) {
		return "", Errorf("types.parse_player_pool", ErrValidation,
			"unsupported value provided for 'playerPool' parameter: %s. Available pools: %s", raw, join(PlayerPools))
	}
	return p, nil
}

// SplitList splits a comma separated parameter, trimming blanks and
// dropping empty items. It returns nil for an empty input.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SortedUnique returns the distinct values of ids in ascending order.
func SortedUnique(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func join[T ~string](list []T) string {
	parts := make([]string, len(list))
	for i, v := range list {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
