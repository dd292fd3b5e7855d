package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/datablase/internal/adapters/http/api"
	"github.com/okian/datablase/internal/adapters/repository"
	service "github.com/okian/datablase/internal/app"
	"github.com/okian/datablase/pkg/logger"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	if err := logger.Init(logger.WithOutput(&bytes.Buffer{})); err != nil {
		t.Fatal(err)
	}

	convey.Convey("Given a running API", t, func() {
		ctx := context.Background()
		store, err := repository.OpenMemory(ctx, "../../internal/adapters/repository/testdata/league.json")
		convey.So(err, convey.ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithLogger(logger.Discard()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(api.NewServer(svc, api.WithLogger(logger.Discard())).Handler())
		defer srv.Close()

		convey.Convey("When every check passes", func() {
			out, err := execute("run", "--url", srv.URL, "--season", "1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "11 checks, 0 failed")
		})

		convey.Convey("When the API is replaced by a broken one", func() {
			broken := httptest.NewServer(http.NotFoundHandler())
			defer broken.Close()

			out, err := execute("run", "--url", broken.URL)
			convey.So(errors.Is(err, errChecksFailed), convey.ShouldBeTrue)
			convey.So(out, convey.ShouldContainSubstring, "FAIL")
		})

		convey.Convey("When the url is not http", func() {
			_, err := execute("run", "--url", "ftp://example.com")
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When positional arguments are given", func() {
			_, err := execute("run", "extra")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
