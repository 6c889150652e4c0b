package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the default initializer", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then the global logger is available", func() {
			So(Get(), ShouldNotBeNil)
			So(Sync(), ShouldBeNil)
		})
	})

	Convey("Given an unknown format", t, func() {
		err := InitWith(&bytes.Buffer{}, Format("xml"))

		Convey("Then init fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWith(&buf, FormatJSON), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Named("pool").Info(ctx, "fetched pool", String("theme", "cats"), Int("items", 25), Bool("cached", false))

			Convey("Then the record carries the fields, the name and the caller", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "fetched pool")
				So(rec["theme"], ShouldEqual, "cats")
				So(rec["items"], ShouldEqual, float64(25))
				So(rec["cached"], ShouldEqual, false)
				So(rec["logger"], ShouldEqual, "pool")
				So(rec["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to error", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "dropped")
			Get().Error(ctx, "kept", Error(errors.New("boom")))

			Convey("Then only the error record is written", func() {
				out := buf.String()
				So(out, ShouldNotContainSubstring, "dropped")
				So(strings.Count(out, "\n"), ShouldEqual, 1)
				So(out, ShouldContainSubstring, "boom")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels parse", func() {
			for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("And unknown levels fail", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()

		Convey("Then logging does not panic", func() {
			So(func() { l.Named("x").Error(context.Background(), "ignored") }, ShouldNotPanic)
		})
	})
}
