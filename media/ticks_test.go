package media

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTicks(t *testing.T) {
	Convey("Ticks", t, func() {
		Convey("Should round-trip through time.Duration", func() {
			d := 10 * time.Minute
			So(DurationToTicks(d).Duration(), ShouldEqual, d)
		})

		Convey("One second should be ten million ticks", func() {
			So(DurationToTicks(time.Second), ShouldEqual, TicksPerSecond)
		})

		Convey("Seconds conversion should agree both ways", func() {
			So(SecondsToTicks(90).Seconds(), ShouldEqual, 90.0)
			So(Ticks(15_000_000).Seconds(), ShouldEqual, 1.5)
		})
	})
}

func TestStreamSource(t *testing.T) {
	Convey("StreamSource", t, func() {
		item := &Item{ID: "ep1", Name: "Pilot", RuntimeTicks: DurationToTicks(45 * time.Minute)}

		Convey("Validate should require an item and a URL", func() {
			So((&StreamSource{}).Validate(), ShouldNotBeNil)
			So((&StreamSource{Item: item}).Validate(), ShouldNotBeNil)
			So((&StreamSource{Item: item, URL: "http://srv/stream.m3u8"}).Validate(), ShouldBeNil)
		})

		Convey("ResumeTarget should convert ticks", func() {
			s := &StreamSource{Item: item, URL: "x", ResumeTargetTicks: DurationToTicks(10 * time.Minute)}
			So(s.ResumeTarget(), ShouldEqual, 10*time.Minute)
		})

		Convey("StreamKind strings", func() {
			So(Adaptive.String(), ShouldEqual, "adaptive")
			So(DirectPlay.String(), ShouldEqual, "direct")
		})
	})
}
