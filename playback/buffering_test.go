package playback

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBufferingStateCoordinator(t *testing.T) {
	Convey("Given a coordinator with a 30s timeout and a 10s extension", t, func() {
		b := NewBufferingStateCoordinator(30*time.Second, 10*time.Second)
		t0 := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

		Convey("Without an episode, checks should do nothing", func() {
			So(b.Active(), ShouldBeFalse)
			So(b.Check(t0, true), ShouldEqual, BufferingNone)
			So(b.Elapsed(t0), ShouldEqual, time.Duration(0))
		})

		Convey("When an episode begins", func() {
			b.Begin(t0)

			Convey("It should be active and track elapsed time", func() {
				So(b.Active(), ShouldBeTrue)
				So(b.Elapsed(t0.Add(12*time.Second)), ShouldEqual, 12*time.Second)
			})

			Convey("Begin again should not move the deadline", func() {
				b.Begin(t0.Add(25 * time.Second))
				So(b.Check(t0.Add(31*time.Second), false), ShouldEqual, BufferingFail)
			})

			Convey("Checks before the deadline should return none", func() {
				So(b.Check(t0.Add(29*time.Second), true), ShouldEqual, BufferingNone)
			})

			Convey("When an adaptive stream passes the deadline", func() {
				action := b.Check(t0.Add(30*time.Second), true)

				Convey("It should get exactly one recovery attempt", func() {
					So(action, ShouldEqual, BufferingAttemptRecovery)
					So(b.RecoveryAttempted(), ShouldBeTrue)
				})

				Convey("The deadline should be extended by the extension", func() {
					So(b.Check(t0.Add(39*time.Second), true), ShouldEqual, BufferingNone)
				})

				Convey("Passing the extended deadline should fail the episode", func() {
					So(b.Check(t0.Add(40*time.Second), true), ShouldEqual, BufferingFail)
					So(b.Active(), ShouldBeFalse)

					Convey("And the failed episode should still report its duration", func() {
						So(b.Elapsed(t0.Add(40*time.Second)), ShouldEqual, 40*time.Second)
					})
				})

				Convey("A failed episode should stay failed on further checks", func() {
					So(b.Check(t0.Add(40*time.Second), true), ShouldEqual, BufferingFail)
					So(b.Check(t0.Add(41*time.Second), true), ShouldEqual, BufferingNone)
				})
			})

			Convey("When a direct-play stream passes the deadline", func() {
				Convey("It should fail immediately without a recovery attempt", func() {
					So(b.Check(t0.Add(30*time.Second), false), ShouldEqual, BufferingFail)
					So(b.RecoveryAttempted(), ShouldBeFalse)
				})
			})

			Convey("When the engine leaves buffering before the deadline", func() {
				b.End()

				Convey("The episode should clear completely", func() {
					So(b.Active(), ShouldBeFalse)
					So(b.Check(t0.Add(time.Minute), true), ShouldEqual, BufferingNone)
				})

				Convey("A new episode should get a fresh recovery attempt", func() {
					b.Begin(t0.Add(2 * time.Minute))
					So(b.Check(t0.Add(2*time.Minute+30*time.Second), true), ShouldEqual, BufferingAttemptRecovery)
				})
			})
		})
	})
}
