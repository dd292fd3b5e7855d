package views_test

import (
	"errors"
	"testing"

	"github.com/okian/datablase/internal/domain/types"
	"github.com/okian/datablase/internal/domain/views"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaultRegistry(t *testing.T) {
	Convey("Given the production registry", t, func() {
		r := views.MustRegistry()

		Convey("Then each documented triple maps to its relation", func() {
			cases := []struct {
				group    types.StatGroup
				split    types.SplitType
				gameType types.GameType
				relation string
			}{
				{types.GroupHitting, types.SplitSeason, types.GameRegular, "data.batting_stats_player_season"},
				{types.GroupHitting, types.SplitSeason, types.GamePostseason, "data.batting_stats_player_playoffs_season"},
				{types.GroupPitching, types.SplitSeason, types.GameRegular, "data.pitching_stats_player_season"},
				{types.GroupPitching, types.SplitSeason, types.GamePostseason, "data.pitching_stats_player_playoffs_season"},
				{types.GroupHitting, types.SplitCareer, types.GameRegular, "data.batting_stats_player_lifetime"},
				{types.GroupPitching, types.SplitCareer, types.GamePostseason, "data.pitching_stats_player_playoffs_lifetime"},
				{types.GroupHitting, types.SplitSeasonCombined, types.GameRegular, "data.batting_stats_player_season_combined"},
				{types.GroupRunning, types.SplitSeason, types.GameRegular, "data.running_stats_player_season"},
				{types.GroupFielding, types.SplitCareer, types.GameRegular, "data.fielder_stats_lifetime"},
			}
			for _, c := range cases {
				src, err := r.Source(c.group, c.split, c.gameType)
				So(err, ShouldBeNil)
				So(src.Relation, ShouldEqual, c.relation)
			}
		})

		Convey("When the combination has no source", func() {
			_, err := r.Source(types.GroupHitting, types.SplitSeasonCombined, types.GamePostseason)

			Convey("Then it fails as an unsupported split and lists the valid ones", func() {
				So(errors.Is(err, types.ErrUnsupportedSplit), ShouldBeTrue)
				So(errors.Is(err, types.ErrUnsupportedCombination), ShouldBeTrue)
				So(types.Message(err), ShouldContainSubstring, "season/R")
			})

			_, err = r.Source(types.GroupRunning, types.SplitSeason, types.GamePostseason)
			So(errors.Is(err, types.ErrUnsupportedSplit), ShouldBeTrue)
		})

		Convey("Then career sources carry neither season nor team", func() {
			src, err := r.Source(types.GroupHitting, types.SplitCareer, types.GameRegular)
			So(err, ShouldBeNil)
			So(src.HasColumn(views.ColSeason), ShouldBeFalse)
			So(src.HasColumn(views.ColTeamID), ShouldBeFalse)
			So(src.Aux.JoinKeys, ShouldResemble, []string{views.ColPlayerID})
		})

		Convey("Then hitting season joins base running by player, season and team", func() {
			src, _ := r.Source(types.GroupHitting, types.SplitSeason, types.GameRegular)
			So(src.Aux, ShouldNotBeNil)
			So(src.Aux.Relation, ShouldEqual, "data.running_stats_player_season")
			So(src.Aux.JoinKeys, ShouldResemble, []string{views.ColPlayerID, views.ColSeason, views.ColTeamID})
		})

		Convey("Then pitching has no auxiliary relation", func() {
			src, _ := r.Source(types.GroupPitching, types.SplitSeason, types.GameRegular)
			So(src.Aux, ShouldBeNil)
		})

		Convey("Then default leader categories exist", func() {
			So(r.LeaderCategories(types.GroupHitting), ShouldContain, "batting_average")
			So(r.Groups(), ShouldResemble, types.StatGroups)
		})
	})
}

func TestSelect(t *testing.T) {
	Convey("Given hitting season selections", t, func() {
		r := views.MustRegistry()

		Convey("When no fields are requested", func() {
			sel, err := r.Select(types.GroupHitting, types.SplitSeason, types.GameRegular, nil)

			Convey("Then every field and the base running relation are selected", func() {
				So(err, ShouldBeNil)
				So(sel.IncludeAux(), ShouldBeTrue)
				So(sel.Names(), ShouldContain, "stolen_bases")
				So(sel.Names(), ShouldContain, "batting_average")
				So(sel.Columns()[:5], ShouldResemble, []string{"player_id", "player_name", "team_id", "team", "season"})
			})
		})

		Convey("When only primary fields are requested", func() {
			sel, err := r.Select(types.GroupHitting, types.SplitSeason, types.GameRegular, []string{"hits", "at_bats", "hits"})
			So(err, ShouldBeNil)
			So(sel.IncludeAux(), ShouldBeFalse)
			So(sel.Names(), ShouldResemble, []string{"hits", "at_bats"})
			So(sel.AuxColumns(), ShouldBeNil)
		})

		Convey("When a base running field is requested", func() {
			sel, err := r.Select(types.GroupHitting, types.SplitSeason, types.GameRegular, []string{"hits", "runs"})
			So(err, ShouldBeNil)
			So(sel.IncludeAux(), ShouldBeTrue)
			So(sel.AuxColumns(), ShouldResemble, []string{"player_id", "season", "team_id", "runs"})
		})

		Convey("When a field is unknown", func() {
			_, err := r.Select(types.GroupPitching, types.SplitSeason, types.GameRegular, []string{"stolen_bases"})
			So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
			So(types.Message(err), ShouldContainSubstring, "earned_run_average")
		})

		Convey("When sorting", func() {
			src, _ := r.Source(types.GroupPitching, types.SplitSeason, types.GameRegular)
			fl, err := r.SortField(src, "whip")
			So(err, ShouldBeNil)
			So(fl.LowerIsBetter, ShouldBeTrue)
			_, err = r.SortField(src, "nope")
			So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
		})

		Convey("When sorting by a base running stat", func() {
			src, _ := r.Source(types.GroupHitting, types.SplitSeason, types.GameRegular)
			fl, err := r.SortField(src, "stolen_bases")
			So(err, ShouldBeNil)
			So(fl.Relation, ShouldEqual, src.Aux.Relation)
			_, err = r.SortField(src, "whip")
			So(types.Message(err), ShouldContainSubstring, "stolen_bases")
		})
	})
}

func TestRegistryValidation(t *testing.T) {
	Convey("Given hand built source tables", t, func() {
		good := views.Source{
			Key:      views.Key{Group: types.GroupHitting, Split: types.SplitSeason, GameType: types.GameRegular},
			Relation: "data.x",
			Identity: []string{"player_id", "season"},
			Fields:   []views.Field{{Name: "hits", Column: "hits", Relation: "data.x"}},
		}

		Convey("A valid table builds", func() {
			_, err := views.NewRegistry([]views.Source{good}, nil)
			So(err, ShouldBeNil)
		})

		Convey("Duplicate keys fail", func() {
			_, err := views.NewRegistry([]views.Source{good, good}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Unsafe relation names fail", func() {
			bad := good
			bad.Relation = "data.x; drop table"
			_, err := views.NewRegistry([]views.Source{bad}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Fields bound to another relation fail", func() {
			bad := good
			bad.Fields = []views.Field{{Name: "hits", Column: "hits", Relation: "data.y"}}
			_, err := views.NewRegistry([]views.Source{bad}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Aux join keys must be identity columns", func() {
			bad := good
			bad.Aux = &views.Aux{Relation: "data.r", JoinKeys: []string{"team_id"},
				Fields: []views.Field{{Name: "runs", Column: "runs", Relation: "data.r"}}}
			_, err := views.NewRegistry([]views.Source{bad}, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("Leader categories must be fields", func() {
			_, err := views.NewRegistry([]views.Source{good}, map[types.StatGroup][]string{types.GroupHitting: {"wins"}})
			So(err, ShouldNotBeNil)
		})
	})
}
