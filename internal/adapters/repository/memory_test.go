package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/datablase/internal/domain/aggregate"
	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
)

const leagueFixture = "testdata/league.json"

func openLeague(t *testing.T) *Memory {
	t.Helper()
	m, err := OpenMemory(context.Background(), leagueFixture)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	return m
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFixture(t *testing.T) {
	Convey("Given fixture documents", t, func() {
		Convey("A missing file is a fixture error", func() {
			_, err := OpenMemory(context.Background(), "testdata/missing.json")
			So(errors.Is(err, ErrFixture), ShouldBeTrue)
		})

		Convey("Malformed JSON is a fixture error", func() {
			_, err := DecodeFixture([]byte(`{"teams": [`))
			So(errors.Is(err, ErrFixture), ShouldBeTrue)
		})

		Convey("A revision without valid_from is rejected", func() {
			_, err := DecodeFixture([]byte(`{"teams": [{"team_id": "t1"}]}`))
			So(errors.Is(err, ErrFixture), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "teams[0]")
		})

		Convey("Integral numbers decode as int64", func() {
			ds, err := DecodeFixture([]byte(`{"games": [{"game_id": "g", "season": 3, "day": 1.5}]}`))
			So(err, ShouldNotBeNil)
			So(ds, ShouldBeNil)

			ds, err = DecodeFixture([]byte(`{"games": [{"game_id": "g", "season": 3, "day": 1, "score": 1.5}]}`))
			So(err, ShouldBeNil)
			So(ds.Games[0]["season"], ShouldEqual, int64(3))
			So(ds.Games[0]["score"], ShouldEqual, 1.5)
		})
	})
}

func TestMemoryTimeMap(t *testing.T) {
	m := openLeague(t)
	ctx := context.Background()

	Convey("Given the league time map", t, func() {
		Convey("The latest season ignores the event type filter when empty", func() {
			s, err := m.LatestSeason(ctx, "")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 2)

			s, err = m.LatestSeason(ctx, "postseason")
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 1)
		})

		Convey("An unknown event type is not found", func() {
			_, err := m.LatestSeason(ctx, "offseason")
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("Latest day covers every phase", func() {
			d, err := m.LatestDay(ctx, 1)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 3)

			_, err = m.LatestDay(ctx, 9)
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("Day range keeps only the requested phases", func() {
			first, last, err := m.DayRange(ctx, 1, []int{2})
			So(err, ShouldBeNil)
			So(first, ShouldEqual, 0)
			So(last, ShouldEqual, 2)

			_, _, err = m.DayRange(ctx, 1, []int{11})
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("Day timestamps resolve to the first time of the day", func() {
			ts, err := m.DayTimestamp(ctx, 2, 1)
			So(err, ShouldBeNil)
			So(ts.Equal(*at("2020-07-27T17:00:00Z")), ShouldBeTrue)

			_, err = m.DayTimestamp(ctx, 2, 5)
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("Season phases are distinct and sorted", func() {
			phases, err := m.SeasonPhases(ctx)
			So(err, ShouldBeNil)
			So(len(phases), ShouldEqual, 3)
			So(phases[0].Season, ShouldEqual, 1)
			So(phases[0].PhaseID, ShouldEqual, 2)
			So(phases[1].PhaseID, ShouldEqual, 3)
			So(phases[2].Season, ShouldEqual, 2)
		})
	})
}

func TestMemoryCounts(t *testing.T) {
	m := openLeague(t)
	agg := aggregate.New(m)
	ctx := context.Background()

	Convey("Given the g1 events", t, func() {
		Convey("Batter counts follow the event filters", func() {
			pa, err := agg.Count(ctx, aggregate.PlateAppearances, nil)
			So(err, ShouldBeNil)
			So(pa["p1"], ShouldEqual, 2.0)
			So(pa["p2"], ShouldEqual, 2.0)

			ab, err := agg.Count(ctx, aggregate.AtBats, nil)
			So(err, ShouldBeNil)
			So(ab["p1"], ShouldEqual, 2.0)
			So(ab["p2"], ShouldEqual, 1.0)

			tob, err := agg.Count(ctx, aggregate.TimesOnBase, []string{"p2"})
			So(err, ShouldBeNil)
			So(tob, ShouldResemble, aggregate.CountSet{"p2": 2})
		})

		Convey("Pitcher counts read both event tables", func() {
			scored, err := agg.Count(ctx, aggregate.RunnersScored, nil)
			So(err, ShouldBeNil)
			So(scored, ShouldResemble, aggregate.CountSet{"p3": 2})

			hr, err := agg.Count(ctx, aggregate.HomeRunsAllowed, nil)
			So(err, ShouldBeNil)
			So(hr["p3"], ShouldEqual, 1.0)

			outs, err := agg.Count(ctx, aggregate.OutsRecorded, nil)
			So(err, ShouldBeNil)
			So(outs["p3"], ShouldEqual, 1.0)
		})

		Convey("Earned runs count the home run twice", func() {
			er, err := agg.Derive(ctx, aggregate.EarnedRunsStat, nil)
			So(err, ShouldBeNil)
			So(len(er), ShouldEqual, 1)
			So(float64(er[0].Value), ShouldEqual, 3.0)

			era, err := agg.Derive(ctx, aggregate.ERAStat, []string{"p3"})
			So(err, ShouldBeNil)
			So(float64(era[0].Value), ShouldAlmostEqual, 81, 1e-9)

			whip, err := agg.Derive(ctx, aggregate.WHIPStat, []string{"p3"})
			So(err, ShouldBeNil)
			So(float64(whip[0].Value), ShouldAlmostEqual, 9, 1e-9)
		})

		Convey("Unknown ids are absent rather than zero", func() {
			hits, err := agg.Count(ctx, aggregate.Hits, []string{"nobody"})
			So(err, ShouldBeNil)
			So(hits, ShouldBeEmpty)
		})
	})
}

func TestMemoryRevisions(t *testing.T) {
	m := openLeague(t)
	ctx := context.Background()

	Convey("Given versioned teams and players", t, func() {
		Convey("Open revisions are returned without an instant", func() {
			teams, err := m.TeamRevisions(ctx, RevisionQuery{})
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 3)
			So(teams[0].Fields.String("full_name"), ShouldEqual, "Hades Sunbeams")
		})

		Convey("An instant selects the revision in effect", func() {
			teams, err := m.TeamRevisions(ctx, RevisionQuery{
				Field: TeamIDField, Values: []string{"t1"}, AsOf: at("2020-07-20T18:00:00Z"),
			})
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 1)
			So(teams[0].Fields.String("full_name"), ShouldEqual, "Hellmouth Sunbeams")
		})

		Convey("Both revisions match on the boundary, latest first", func() {
			teams, err := m.TeamRevisions(ctx, RevisionQuery{
				Field: TeamIDField, Values: []string{"t1"}, AsOf: at("2020-07-25T00:00:00Z"),
			})
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 2)
			So(teams[0].Fields.String("full_name"), ShouldEqual, "Hades Sunbeams")
		})

		Convey("Exclude drops tournament teams", func() {
			teams, err := m.TeamRevisions(ctx, RevisionQuery{
				Exclude: types.PoolFilter{{Field: "team_current_status", Value: "tournament"}},
			})
			So(err, ShouldBeNil)
			So(len(teams), ShouldEqual, 2)
			for _, tm := range teams {
				So(tm.EntityID, ShouldNotEqual, "t3")
			}
		})

		Convey("Pools filter players", func() {
			dead, err := m.PlayerRevisions(ctx, RevisionQuery{Where: types.PoolDeceased.Filter()})
			So(err, ShouldBeNil)
			So(len(dead), ShouldEqual, 1)
			So(dead[0].EntityID, ShouldEqual, "p3")

			shadows, err := m.PlayerRevisions(ctx, RevisionQuery{Where: types.PoolShadows.Filter()})
			So(err, ShouldBeNil)
			So(len(shadows), ShouldEqual, 1)
			So(shadows[0].EntityID, ShouldEqual, "p4")
		})

		Convey("AllRevisions ignores validity", func() {
			revs, err := m.PlayerRevisions(ctx, RevisionQuery{
				Field: PlayerIDField, Values: []string{"p1"}, AllRevisions: true,
			})
			So(err, ShouldBeNil)
			So(len(revs), ShouldEqual, 2)
			So(revs[0].Fields.String("team_id"), ShouldEqual, "t2")
		})

		Convey("A roster as of season one still lists the traded player", func() {
			roster, err := m.PlayerRevisions(ctx, RevisionQuery{
				Field: TeamIDField, Values: []string{"t1"}, AsOf: at("2020-07-20T18:00:00Z"),
			})
			So(err, ShouldBeNil)
			So(len(roster), ShouldEqual, 2)
			So(roster[0].EntityID, ShouldEqual, "p1")
			So(roster[1].EntityID, ShouldEqual, "p2")
		})
	})
}

func TestMemoryStatRows(t *testing.T) {
	m := openLeague(t)
	reg := views.MustRegistry()
	ctx := context.Background()
	season := 1

	Convey("Given season hitting rows", t, func() {
		sel, err := reg.Select(types.GroupHitting, types.SplitSeason, types.GameRegular, nil)
		So(err, ShouldBeNil)

		Convey("Rows carry the auxiliary row when one matches", func() {
			rows, err := m.StatRows(ctx, StatsQuery{Selection: sel, Season: &season})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Values.String(views.ColPlayerID), ShouldEqual, "p1")
			So(rows[0].Aux["stolen_bases"], ShouldEqual, int64(3))
			So(rows[1].Values.String(views.ColPlayerID), ShouldEqual, "p2")
			So(rows[1].Aux, ShouldBeNil)
		})

		Convey("A sort field orders before the name", func() {
			walks, _ := sel.Source.Field("walks")
			rows, err := m.StatRows(ctx, StatsQuery{Selection: sel, Season: &season, SortField: &walks, Order: types.OrderDesc})
			So(err, ShouldBeNil)
			So(rows[0].Values.String(views.ColPlayerID), ShouldEqual, "p2")
		})

		Convey("Limit and player filters apply", func() {
			rows, err := m.StatRows(ctx, StatsQuery{Selection: sel, PlayerIDs: []string{"p1"}})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)

			rows, err = m.StatRows(ctx, StatsQuery{Selection: sel, Limit: 1})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
		})

		Convey("Projection drops unselected columns", func() {
			narrow, err := reg.Select(types.GroupHitting, types.SplitSeason, types.GameRegular, []string{"hits"})
			So(err, ShouldBeNil)
			rows, err := m.StatRows(ctx, StatsQuery{Selection: narrow, Season: &season})
			So(err, ShouldBeNil)
			So(rows[0].Values, ShouldContainKey, "hits")
			So(rows[0].Values, ShouldNotContainKey, "at_bats")
			So(rows[0].Aux, ShouldBeNil)
		})
	})

	Convey("Given game scoped rows", t, func() {
		sel, err := reg.Select(types.GroupPitching, types.SplitGame, types.GameRegular, nil)
		So(err, ShouldBeNil)
		rows, err := m.StatRows(ctx, StatsQuery{Selection: sel, GameID: "g1", TeamIDs: []string{"t2"}})
		So(err, ShouldBeNil)
		So(len(rows), ShouldEqual, 1)
		So(rows[0].Values.String(views.ColPlayerID), ShouldEqual, "p3")
	})
}

func TestMemoryLeaders(t *testing.T) {
	m := openLeague(t)
	reg := views.MustRegistry()
	ctx := context.Background()

	Convey("Given season one hitters", t, func() {
		src, err := reg.Source(types.GroupHitting, types.SplitSeason, types.GameRegular)
		So(err, ShouldBeNil)

		Convey("Ties share a rank", func() {
			hits, _ := src.Field("hits")
			rows, err := m.Leaders(ctx, LeaderQuery{Category: hits, Season: 1})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[1].Rank, ShouldEqual, 1)
			So(rows[0].Record.String(views.ColPlayerName), ShouldEqual, "Jessica Telephone")
		})

		Convey("The next distinct value skips ahead", func() {
			hr, _ := src.Field("home_runs")
			rows, err := m.Leaders(ctx, LeaderQuery{Category: hr, Season: 1, Limit: 5})
			So(err, ShouldBeNil)
			So(rows[0].Value, ShouldEqual, int64(1))
			So(rows[1].Rank, ShouldEqual, 2)
		})

		Convey("Auxiliary categories read their own relation", func() {
			sb, _ := src.Field("stolen_bases")
			rows, err := m.Leaders(ctx, LeaderQuery{Category: sb, Season: 1})
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Category, ShouldEqual, "stolen_bases")
		})
	})
}

func TestMemoryGames(t *testing.T) {
	m := openLeague(t)
	ctx := context.Background()

	Convey("Given two games", t, func() {
		Convey("Games list newest season first", func() {
			games, err := m.Games(ctx, GameQuery{})
			So(err, ShouldBeNil)
			So(len(games), ShouldEqual, 2)
			So(games[0].ID, ShouldEqual, "g2")
		})

		Convey("Team filters match either side", func() {
			day := 0
			games, err := m.Games(ctx, GameQuery{Day: &day, TeamIDs: []string{"t2"}})
			So(err, ShouldBeNil)
			So(len(games), ShouldEqual, 1)
			So(games[0].HomeTeam, ShouldEqual, "t1")
		})

		Convey("An unknown game is not found", func() {
			_, err := m.Game(ctx, "nope")
			So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
		})

		Convey("Events are ordered by index", func() {
			events, err := m.GameEvents(ctx, EventQuery{GameID: "g1"})
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 4)
			for i, e := range events {
				So(e.EventIndex, ShouldEqual, i)
			}
			So(events[0].ID, ShouldEqual, int64(101))

			mine, err := m.GameEvents(ctx, EventQuery{PlayerID: "p1"})
			So(err, ShouldBeNil)
			So(len(mine), ShouldEqual, 2)
		})

		Convey("Children are fetched by event id", func() {
			runners, err := m.BaseRunners(ctx, []int64{101, 102})
			So(err, ShouldBeNil)
			So(len(runners), ShouldEqual, 3)
			So(runners[0].ID, ShouldEqual, int64(1000))

			outcomes, err := m.Outcomes(ctx, []int64{104})
			So(err, ShouldBeNil)
			So(len(outcomes), ShouldEqual, 1)
			So(outcomes[0].GameEventID, ShouldEqual, int64(104))

			none, err := m.Outcomes(ctx, nil)
			So(err, ShouldBeNil)
			So(none, ShouldBeEmpty)
		})
	})
}
