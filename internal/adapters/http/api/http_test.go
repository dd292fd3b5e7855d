package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/datablase/internal/adapters/http/api"
	"github.com/okian/datablase/internal/adapters/repository"
	service "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/pkg/logger"
)

const leagueFixture = "../../repository/testdata/league.json"

func newHandler(t *testing.T, opts ...api.Option) http.Handler {
	t.Helper()
	ctx := context.Background()
	store, err := repository.OpenMemory(ctx, leagueFixture)
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	svc := service.New(service.WithStore(store), service.WithLogger(logger.Discard()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(svc.Stop)
	opts = append([]api.Option{api.WithLogger(logger.Discard())}, opts...)
	return api.NewServer(svc, opts...).Handler()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}

func TestNewServer(t *testing.T) {
	Convey("Given an explicit logger and no global one", t, func() {
		Convey("Building the server and its handler does not panic", func() {
			So(func() {
				api.NewServer(nil, api.WithLogger(logger.Discard())).Handler()
			}, ShouldNotPanic)
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given the API handler", t, func() {
		h := newHandler(t)

		Convey("/livez reports ok", func() {
			w := get(h, "/livez")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("/healthz serves metrics", func() {
			w := get(h, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Unknown routes are 404", func() {
			w := get(h, "/v2/nothing")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestV1(t *testing.T) {
	Convey("Given the API handler", t, func() {
		h := newHandler(t)

		Convey("Events without a filter are rejected", func() {
			w := get(h, "/v1/events")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var body errorBody
			So(decode(w, &body), ShouldBeNil)
			So(body.Code, ShouldEqual, "validation_error")
			So(body.Message, ShouldContainSubstring, "batterId")
		})

		Convey("Events of a game are counted", func() {
			w := get(h, "/v1/events?gameId=g1")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Count   int              `json:"count"`
				Results []map[string]any `json:"results"`
			}
			So(decode(w, &body), ShouldBeNil)
			So(body.Count, ShouldEqual, 4)
			So(body.Results[0]["id"], ShouldEqual, 101.0)
		})

		Convey("Counts group by batter", func() {
			w := get(h, "/v1/atBats?batterId=p1,p2")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, `{"count":2,"results":[{"id":"p1","count":2},{"id":"p2","count":1}]}`+"\n")
		})

		Convey("Formulas read pitcher ids", func() {
			w := get(h, "/v1/era?pitcherId=p3")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Results []struct {
					ID    string  `json:"id"`
					Value float64 `json:"value"`
				} `json:"results"`
			}
			So(decode(w, &body), ShouldBeNil)
			So(body.Results[0].Value, ShouldAlmostEqual, 81.0)
		})
	})
}

func TestV2(t *testing.T) {
	Convey("Given the API handler", t, func() {
		h := newHandler(t)

		Convey("Career splits with a season are an unsupported combination", func() {
			w := get(h, "/v2/stats?group=hitting&type=career&season=1")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var body errorBody
			So(decode(w, &body), ShouldBeNil)
			So(body.Code, ShouldEqual, "unsupported_combination")
		})

		Convey("Unknown groups list the valid ones", func() {
			w := get(h, "/v2/stats?group=bowling")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "Available groups")
		})

		Convey("A negative limit fails validation", func() {
			w := get(h, "/v2/players?limit=-1")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "'limit'")
		})

		Convey("A malformed season fails validation", func() {
			w := get(h, "/v2/teams?season=abc")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Stat splits are served", func() {
			w := get(h, "/v2/stats?group=hitting&season=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body []struct {
				Group       string `json:"group"`
				TotalSplits int    `json:"totalSplits"`
			}
			So(decode(w, &body), ShouldBeNil)
			So(len(body), ShouldEqual, 1)
			So(body[0].TotalSplits, ShouldEqual, 2)
		})

		Convey("Repeated stat requests are byte identical", func() {
			path := "/v2/stats?group=hitting,pitching&season=1&sortStat=hits"
			a, b := get(h, path), get(h, path)
			So(a.Code, ShouldEqual, http.StatusOK)
			So(a.Body.String(), ShouldEqual, b.Body.String())
		})

		Convey("Missing entities are null", func() {
			So(get(h, "/v2/teams/nobody").Body.String(), ShouldEqual, "null\n")
			So(get(h, "/v2/players/nobody").Body.String(), ShouldEqual, "null\n")
			So(get(h, "/v2/games/g9/boxscore").Body.String(), ShouldEqual, "null\n")
		})

		Convey("Lists of a missing season are empty", func() {
			w := get(h, "/v2/teams?season=99")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldEqual, "[]\n")
		})

		Convey("A team is found by slug", func() {
			w := get(h, "/v2/teams/hellmouth-sunbeams?season=1")
			var body map[string]any
			So(decode(w, &body), ShouldBeNil)
			So(body["team_id"], ShouldEqual, "t1")
		})

		Convey("Rosters include shadows unless includeShadows=false", func() {
			var all, main []map[string]any
			So(decode(get(h, "/v2/teams/t2/roster"), &all), ShouldBeNil)
			So(decode(get(h, "/v2/teams/t2/roster?includeShadows=false"), &main), ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(len(main), ShouldEqual, 2)
			So(get(h, "/v2/teams/t2/roster?includeShadows=maybe").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Seasons list their bounds", func() {
			w := get(h, "/v2/seasons")
			var body []map[string]any
			So(decode(w, &body), ShouldBeNil)
			So(len(body), ShouldEqual, 2)
			So(body[0], ShouldContainKey, "startTime")
		})

		Convey("The box score nests both teams", func() {
			w := get(h, "/v2/games/g1/boxscore")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Game  map[string]any `json:"game"`
				Teams struct {
					Home struct {
						Team map[string]any `json:"team"`
					} `json:"home"`
				} `json:"teams"`
			}
			So(decode(w, &body), ShouldBeNil)
			So(body.Game["game_id"], ShouldEqual, "g1")
			So(body.Teams.Home.Team["full_name"], ShouldEqual, "Hellmouth Sunbeams")
		})

		Convey("Game events carry their children", func() {
			w := get(h, "/v2/games/g1/events")
			So(w.Body.String(), ShouldContainSubstring, `"game_event_base_runners"`)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a rate limited handler", t, func() {
		h := newHandler(t, api.WithRateLimit(1), api.WithCORSOrigins([]string{"https://example.com"}))

		Convey("The second request within a minute is limited", func() {
			So(get(h, "/v2/config").Code, ShouldEqual, http.StatusOK)
			So(get(h, "/v2/config").Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("Allowed origins are echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/livez", http.NoBody)
			req.Header.Set("Origin", "https://example.com")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "https://example.com")
		})

		Convey("Responses carry a request id header when one is sent", func() {
			req := httptest.NewRequest(http.MethodGet, "/livez", http.NoBody)
			req.Header.Set("X-Request-Id", "abc")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}
