package probe_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/datablase/internal/adapters/http/api"
	"github.com/okian/datablase/internal/adapters/repository"
	service "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/internal/probe"
	"github.com/okian/datablase/pkg/logger"
)

func apiServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	store, err := repository.OpenMemory(ctx, "../adapters/repository/testdata/league.json")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	svc := service.New(service.WithStore(store), service.WithLogger(logger.Discard()))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv := httptest.NewServer(api.NewServer(svc, api.WithLogger(logger.Discard())).Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestProbeAgainstAPI(t *testing.T) {
	Convey("Given the API over the league fixture", t, func() {
		srv := apiServer(t)

		for _, season := range []string{"1", "current"} {
			Convey("Every check passes for season "+season, func() {
				p, err := probe.New(srv.URL, probe.WithSeason(season), probe.WithRepeat(3))
				So(err, ShouldBeNil)

				report, err := p.Run(context.Background())
				So(err, ShouldBeNil)
				for _, c := range report.Checks {
					So(c.Err, ShouldBeNil)
				}
				So(report.OK(), ShouldBeTrue)
				So(len(report.Checks), ShouldEqual, 11)
			})
		}
	})
}

func TestProbeFailures(t *testing.T) {
	Convey("Given a misbehaving server", t, func() {
		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/v2/seasons", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `[{"season":1,"startTime":"2020-07-21T00:00:00Z","endTime":"2020-07-20T00:00:00Z"}]`)
		})
		mux.HandleFunc("/v2/config", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprintf(w, `{"call":%d}`, calls.Add(1))
		})
		mux.HandleFunc("/v2/teams", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprint(w, "[]")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, "[]")
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		p, err := probe.New(srv.URL+"/", probe.WithSeason("1"), probe.WithTimeout(time.Second))
		So(err, ShouldBeNil)
		report, err := p.Run(context.Background())
		So(err, ShouldBeNil)

		byPath := map[string]probe.Check{}
		for _, c := range report.Checks {
			byPath[c.Name+" "+c.Path] = c
		}

		Convey("Changing bodies are unstable", func() {
			So(errors.Is(byPath["stable json /v2/config"].Err, probe.ErrUnstable), ShouldBeTrue)
		})

		Convey("Inverted season bounds are reported", func() {
			So(errors.Is(byPath["season bounds /v2/seasons"].Err, probe.ErrBounds), ShouldBeTrue)
		})

		Convey("Non JSON content types are reported", func() {
			So(errors.Is(byPath["stable json /v2/teams?season=1"].Err, probe.ErrContentType), ShouldBeTrue)
		})

		Convey("A 200 for a career season is a status failure", func() {
			c := byPath["career rejects season /v2/stats?group=hitting&type=career&season=1"]
			So(errors.Is(c.Err, probe.ErrStatus), ShouldBeTrue)
		})

		Convey("The report counts failures", func() {
			So(report.OK(), ShouldBeFalse)
			So(report.Failed(), ShouldEqual, 4)
		})
	})
}

func TestNew(t *testing.T) {
	Convey("URLs must be http or https", t, func() {
		_, err := probe.New("ftp://example.com")
		So(err, ShouldNotBeNil)
		_, err = probe.New("http://localhost:9080")
		So(err, ShouldBeNil)
	})
}
