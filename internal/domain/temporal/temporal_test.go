package temporal_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/datablase/internal/domain/model"
	"github.com/okian/datablase/internal/domain/temporal"
	"github.com/okian/datablase/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeTimeMap answers time map queries from a slice and counts calls.
type fakeTimeMap struct {
	mu      sync.Mutex
	entries []model.TimeMapEntry
	calls   map[string]int
}

func (f *fakeTimeMap) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeTimeMap) LatestSeason(_ context.Context, eventType string) (int, error) {
	f.hit("latest_season")
	best, found := 0, false
	for _, e := range f.entries {
		if eventType != "" && e.Type != eventType {
			continue
		}
		if !found || e.Season > best {
			best, found = e.Season, true
		}
	}
	if !found {
		return 0, types.NewKind("fake", types.ErrNotFound)
	}
	return best, nil
}

func (f *fakeTimeMap) LatestDay(_ context.Context, season int) (int, error) {
	best, found := 0, false
	for _, e := range f.entries {
		if e.Season == season && (!found || e.Day > best) {
			best, found = e.Day, true
		}
	}
	if !found {
		return 0, types.NewKind("fake", types.ErrNotFound)
	}
	return best, nil
}

func (f *fakeTimeMap) DayRange(_ context.Context, season int, phases []int) (int, int, error) {
	f.hit("day_range")
	first, last, found := 0, 0, false
	for _, e := range f.entries {
		if e.Season != season || !containsInt(phases, e.PhaseID) {
			continue
		}
		if !found || e.Day < first {
			first = e.Day
		}
		if !found || e.Day > last {
			last = e.Day
		}
		found = true
	}
	if !found {
		return 0, 0, types.NewKind("fake", types.ErrNotFound)
	}
	return first, last, nil
}

func (f *fakeTimeMap) DayTimestamp(_ context.Context, season, day int) (time.Time, error) {
	for _, e := range f.entries {
		if e.Season == season && e.Day == day {
			return e.FirstTime, nil
		}
	}
	return time.Time{}, types.NewKind("fake", types.ErrNotFound)
}

func (f *fakeTimeMap) SeasonPhases(context.Context) ([]model.SeasonPhase, error) {
	seen := map[model.SeasonPhase]bool{}
	var out []model.SeasonPhase
	for _, e := range f.entries {
		p := model.SeasonPhase{Season: e.Season, PhaseID: e.PhaseID}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

var epoch = time.Date(2020, 7, 20, 16, 0, 0, 0, time.UTC)

func seasonDays(season, from, to, phase int) []model.TimeMapEntry {
	out := make([]model.TimeMapEntry, 0, to-from+1)
	for d := from; d <= to; d++ {
		out = append(out, model.TimeMapEntry{
			Season:    season,
			Day:       d,
			PhaseID:   phase,
			Type:      "gameday",
			FirstTime: epoch.Add(time.Duration(season*1000+d) * time.Hour),
		})
	}
	return out
}

func TestSeasonBounds(t *testing.T) {
	Convey("Given season 5 with days 0 to 99 in phase 2", t, func() {
		fake := &fakeTimeMap{entries: seasonDays(5, 0, 99, 2)}
		fake.entries = append(fake.entries, seasonDays(5, 100, 110, 4)...)
		r := temporal.NewResolver(fake)
		ctx := context.Background()

		Convey("When computing the season bounds", func() {
			iv, err := r.SeasonBounds(ctx, 5)

			Convey("Then they are the first times of day 0 and day 99", func() {
				So(err, ShouldBeNil)
				So(iv.Start, ShouldEqual, fake.entries[0].FirstTime)
				So(iv.End, ShouldEqual, fake.entries[99].FirstTime)
				So(iv.Start.After(iv.End), ShouldBeFalse)
			})
		})

		Convey("When the season is unknown", func() {
			_, err := r.SeasonBounds(ctx, 6)

			Convey("Then the error is not found", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a season past the phase cutover", t, func() {
		fake := &fakeTimeMap{entries: append(seasonDays(12, 0, 9, 2), seasonDays(12, 10, 20, 7)...)}
		fake.entries = append(fake.entries, seasonDays(12, 21, 25, 11)...)
		r := temporal.NewResolver(fake)

		Convey("Then every expanded phase counts toward the bounds", func() {
			first, last, err := r.SeasonDays(context.Background(), 12)
			So(err, ShouldBeNil)
			So(first, ShouldEqual, 0)
			So(last, ShouldEqual, 20)
		})

		Convey("And a custom policy narrows it", func() {
			r := temporal.NewResolver(fake, temporal.WithPhasePolicy(temporal.PhasePolicy{Base: []int{2}}))
			_, last, err := r.SeasonDays(context.Background(), 12)
			So(err, ShouldBeNil)
			So(last, ShouldEqual, 9)
		})
	})
}

func TestCurrentResolution(t *testing.T) {
	Convey("Given a time map spanning two seasons", t, func() {
		entries := append(seasonDays(1, 0, 5, 2), seasonDays(2, 0, 3, 2)...)
		entries = append(entries, model.TimeMapEntry{Season: 3, Day: 0, PhaseID: 1, Type: "election", FirstTime: epoch})
		fake := &fakeTimeMap{entries: entries}
		ctx := context.Background()

		Convey("When no event type restriction applies", func() {
			s, err := temporal.NewResolver(fake).CurrentSeason(ctx)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 3)
		})

		Convey("When restricted to gamedays", func() {
			r := temporal.NewResolver(fake, temporal.WithCurrentSeasonEventType("gameday"))
			s, err := r.CurrentSeason(ctx)
			So(err, ShouldBeNil)
			So(s, ShouldEqual, 2)

			Convey("Then current parameters resolve against it", func() {
				season, ok, err := r.ResolveSeason(ctx, types.Current())
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(season, ShouldEqual, 2)

				day, ok, err := r.ResolveDay(ctx, season, types.Current())
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(day, ShouldEqual, 3)
			})
		})

		Convey("When the parameter is a number or unset", func() {
			r := temporal.NewResolver(fake)
			season, ok, err := r.ResolveSeason(ctx, types.Number(1))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(season, ShouldEqual, 1)

			_, ok, err = r.ResolveSeason(ctx, types.SeasonParam{})
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then seasons list only those with regular season days", func() {
			seasons, err := temporal.NewResolver(fake).Seasons(ctx)
			So(err, ShouldBeNil)
			So(seasons, ShouldResemble, []int{1, 2})
		})
	})

	Convey("Given an empty time map", t, func() {
		_, err := temporal.NewResolver(&fakeTimeMap{}).CurrentSeason(context.Background())
		So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
	})
}

func TestSession(t *testing.T) {
	Convey("Given a request session", t, func() {
		fake := &fakeTimeMap{entries: seasonDays(4, 0, 10, 2)}
		s := temporal.NewResolver(fake).Session()
		ctx := context.Background()

		Convey("When the same lookups repeat concurrently", func() {
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = s.CurrentSeason(ctx)
					_, _ = s.SeasonBounds(ctx, 4)
				}()
			}
			wg.Wait()

			Convey("Then the store is asked once each", func() {
				So(fake.calls["latest_season"], ShouldEqual, 1)
				So(fake.calls["day_range"], ShouldEqual, 1)
			})
		})
	})
}
