package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		ctx := context.Background()

		Convey("When initialized with JSON output", func() {
			var buf bytes.Buffer
			So(Init(WithFormat("json"), WithOutput(&buf)), ShouldBeNil)
			Get().Info(ctx, "hello", String("k", "v"), Int("n", 3))

			Convey("Then records are JSON with fields and a source", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "hello")
				So(rec["k"], ShouldEqual, "v")
				So(rec["n"], ShouldEqual, float64(3))
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When a named logger carries bound fields", func() {
			var buf bytes.Buffer
			So(Init(WithFormat("json"), WithOutput(&buf)), ShouldBeNil)
			Named("stats").With(String("request_id", "abc")).Warn(ctx, "slow", Error(errors.New("boom")))

			var rec map[string]any
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["logger"], ShouldEqual, "stats")
			So(rec["request_id"], ShouldEqual, "abc")
			So(rec["error"], ShouldEqual, "boom")
		})

		Convey("When the level is raised", func() {
			var buf bytes.Buffer
			So(Init(WithOutput(&buf)), ShouldBeNil)
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "dropped")
			So(buf.Len(), ShouldEqual, 0)
			SetLevel(slog.LevelInfo)
		})

		Convey("When the format is unknown", func() {
			So(Init(WithFormat("xml")), ShouldNotBeNil)
		})

		Convey("When the level string is unknown", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestDiscard(t *testing.T) {
	Convey("Discard swallows every level", t, func() {
		So(func() { Discard().Error(context.Background(), "x") }, ShouldNotPanic)
		So(Sync(), ShouldBeNil)
	})
}
