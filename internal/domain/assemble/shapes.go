package assemble

import (
	"sort"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
)

// LeaderRow is one ranked row of a leader category.
type LeaderRow struct {
	Category string
	Rank     int
	Value    any
	Record   model.Record
}

// Leader is one ranked player of a category.
type Leader struct {
	Rank   int       `json:"rank"`
	Value  any       `json:"value"`
	Season *int      `json:"season,omitempty"`
	Player PlayerRef `json:"player"`
}

// LeaderCategory lists the leaders of one stat.
type LeaderCategory struct {
	LeaderCategory string   `json:"leaderCategory"`
	Leaders        []Leader `json:"leaders"`
}

// LeaderGroup holds the categories of one stat group.
type LeaderGroup struct {
	StatGroup        types.StatGroup  `json:"statGroup"`
	LeaderCategories []LeaderCategory `json:"leaderCategories"`
}

// Leaderboard groups rows by category in first seen order. season is
// attached to every leader when the request was season scoped.
func Leaderboard(group types.StatGroup, rows []LeaderRow, season *int) LeaderGroup {
	out := LeaderGroup{StatGroup: group, LeaderCategories: []LeaderCategory{}}
	index := map[string]int{}
	for _, row := range rows {
		i, ok := index[row.Category]
		if !ok {
			i = len(out.LeaderCategories)
			index[row.Category] = i
			out.LeaderCategories = append(out.LeaderCategories, LeaderCategory{LeaderCategory: row.Category, Leaders: []Leader{}})
		}
		leader := Leader{
			Rank:  row.Rank,
			Value: leaderValue(row.Value),
			Player: PlayerRef{
				ID:       row.Record.String(views.ColPlayerID),
				FullName: row.Record.String(views.ColPlayerName),
			},
		}
		if season != nil {
			s := *season
			leader.Season = &s
		}
		out.LeaderCategories[i].Leaders = append(out.LeaderCategories[i].Leaders, leader)
	}
	return out
}

func leaderValue(v any) any {
	if f, ok := (model.Record{"v": v}).Float("v"); ok {
		if _, isStr := v.(string); !isStr {
			return aggregate.Value(f)
		}
	}
	return v
}

// TeamBox is one side of a box score.
type TeamBox struct {
	Team        *model.Revision   `json:"team"`
	PlayerStats []StatGroupResult `json:"playerStats"`
}

// BoxScoreTeams holds both sides of a box score.
type BoxScoreTeams struct {
	Home TeamBox `json:"home"`
	Away TeamBox `json:"away"`
}

// BoxScoreResult is a game with both team snapshots and their player lines.
type BoxScoreResult struct {
	Game  model.Game    `json:"game"`
	Teams BoxScoreTeams `json:"teams"`
}

// BoxScore joins a game with its team snapshots and per-team player stats.
// The snapshots must be the ones valid when the game was played; a nil
// snapshot encodes as null.
func BoxScore(game model.Game, home, away *model.Revision, homeStats, awayStats []StatGroupResult) BoxScoreResult {
	return BoxScoreResult{
		Game: game,
		Teams: BoxScoreTeams{
			Home: TeamBox{Team: home, PlayerStats: nonNil(homeStats)},
			Away: TeamBox{Team: away, PlayerStats: nonNil(awayStats)},
		},
	}
}

func nonNil(s []StatGroupResult) []StatGroupResult {
	if s == nil {
		return []StatGroupResult{}
	}
	return s
}

// GameEventsResult is a game with its ordered plays.
type GameEventsResult struct {
	Game   model.Game        `json:"game"`
	Events []model.GameEvent `json:"events"`
}

// GameEvents attaches children to their events. Events are ordered by
// event index and children by id, both ascending.
func GameEvents(game model.Game, events []model.GameEvent, runners []model.BaseRunner, outcomes []model.Outcome) GameEventsResult {
	evs := make([]model.GameEvent, len(events))
	copy(evs, events)
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].EventIndex != evs[j].EventIndex {
			return evs[i].EventIndex < evs[j].EventIndex
		}
		return evs[i].ID < evs[j].ID
	})

	byID := make(map[int64]int, len(evs))
	for i := range evs {
		evs[i].BaseRunners = []model.BaseRunner{}
		evs[i].Outcomes = []model.Outcome{}
		byID[evs[i].ID] = i
	}

	rs := append([]model.BaseRunner(nil), runners...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
	for _, r := range rs {
		if i, ok := byID[r.GameEventID]; ok {
			evs[i].BaseRunners = append(evs[i].BaseRunners, r)
		}
	}

	ocs := append([]model.Outcome(nil), outcomes...)
	sort.SliceStable(ocs, func(i, j int) bool { return ocs[i].ID < ocs[j].ID })
	for _, o := range ocs {
		if i, ok := byID[o.GameEventID]; ok {
			evs[i].Outcomes = append(evs[i].Outcomes, o)
		}
	}
	return GameEventsResult{Game: game, Events: evs}
}
