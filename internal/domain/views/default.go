package views

import (
	"github.com/okian/datablase/internal/domain/types"
)

var (
	seasonIdentity   = []string{ColPlayerID, ColPlayerName, ColTeamID, ColTeamName, ColSeason}
	combinedIdentity = []string{ColPlayerID, ColPlayerName, ColSeason}
	careerIdentity   = []string{ColPlayerID, ColPlayerName}
	gameIdentity     = []string{ColPlayerID, ColPlayerName, ColTeamID, ColGameID, ColSeason, ColDay}
)

type variant struct {
	split    types.SplitType
	gameType types.GameType
	suffix   string
	identity []string
	joinKeys []string
}

var variants = []variant{
	{types.SplitSeason, types.GameRegular, "season", seasonIdentity, []string{ColPlayerID, ColSeason, ColTeamID}},
	{types.SplitSeason, types.GamePostseason, "playoffs_season", seasonIdentity, []string{ColPlayerID, ColSeason, ColTeamID}},
	{types.SplitCareer, types.GameRegular, "lifetime", careerIdentity, []string{ColPlayerID}},
	{types.SplitCareer, types.GamePostseason, "playoffs_lifetime", careerIdentity, []string{ColPlayerID}},
	{types.SplitSeasonCombined, types.GameRegular, "season_combined", combinedIdentity, []string{ColPlayerID, ColSeason}},
	{types.SplitGame, types.GameRegular, "single_game", gameIdentity, []string{ColPlayerID, ColGameID}},
}

func family(group types.StatGroup, prefix string, defs []fieldDef, auxPrefix string, only ...types.SplitType) []Source {
	var out []Source
	for _, v := range variants {
		if len(only) > 0 && !splitIn(v.split, only) {
			continue
		}
		rel := "data." + prefix + "_" + v.suffix
		src := Source{
			Key:      Key{Group: group, Split: v.split, GameType: v.gameType},
			Relation: rel,
			Identity: v.identity,
			Fields:   bind(rel, defs),
		}
		if auxPrefix != "" {
			auxRel := "data." + auxPrefix + "_" + v.suffix
			src.Aux = &Aux{Relation: auxRel, JoinKeys: v.joinKeys, Fields: bind(auxRel, baseRunningFields)}
		}
		out = append(out, src)
	}
	return out
}

func splitIn(s types.SplitType, list []types.SplitType) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// DefaultSources is the production source table.
func DefaultSources() []Source {
	var out []Source
	out = append(out, family(types.GroupHitting, "batting_stats_player", hittingFields, "running_stats_player")...)
	out = append(out, family(types.GroupPitching, "pitching_stats_player", pitchingFields, "")...)
	for _, s := range family(types.GroupRunning, "running_stats_player", runningFields, "", types.SplitSeason, types.SplitCareer) {
		if s.GameType == types.GameRegular {
			out = append(out, s)
		}
	}
	for _, s := range family(types.GroupFielding, "fielder_stats", fieldingFields, "", types.SplitSeason, types.SplitCareer) {
		if s.GameType == types.GameRegular {
			out = append(out, s)
		}
	}
	return out
}

// DefaultLeaderCategories returns the production leader categories.
func DefaultLeaderCategories() map[types.StatGroup][]string {
	out := make(map[types.StatGroup][]string, len(leaderCategories))
	for g, cats := range leaderCategories {
		out[types.StatGroup(g)] = append([]string{}, cats...)
	}
	return out
}

// MustRegistry builds the production registry and panics when the table is
// inconsistent.
func MustRegistry() *Registry {
	r, err := NewRegistry(DefaultSources(), DefaultLeaderCategories())
	if err != nil {
		panic(err)
	}
	return r
}
