package playback

import (
	"context"
	"testing"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestControllerResumeControl(t *testing.T) {
	Convey("Given a controller with a queued resume position", t, func() {
		engine := newFakeEngine()
		c := NewController(engine, resumeTunables())

		src := adaptiveSource()
		c.src = src
		c.resumeTarget = 10 * time.Minute
		c.resumePending = true

		Convey("The pending target should be exposed while queued", func() {
			So(c.ResumeInProgress(), ShouldBeTrue)
			So(c.PendingResumeTarget(), ShouldEqual, 10*time.Minute)
		})

		Convey("When the engine lands near the target", func() {
			engine.setPosition(10*time.Minute + 2*time.Second)

			applied, err := c.ApplyPendingResume(context.Background())

			Convey("The resume should be applied and cleared", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(c.ResumeInProgress(), ShouldBeFalse)
				So(engine.seekTargets(), ShouldResemble, []time.Duration{10 * time.Minute})
			})
		})

		Convey("When the engine stays stuck at zero", func() {
			engine.setPosition(0)

			applied, err := c.ApplyPendingResume(context.Background())

			Convey("The attempt should report not-landed and stay queued", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeFalse)
				So(c.ResumeInProgress(), ShouldBeTrue)
			})
		})

		Convey("When the manifest starts at an offset", func() {
			src.StartOffsetTicks = media.DurationToTicks(9 * time.Minute)
			engine.setPosition(time.Minute)

			So(c.ManifestOffset(), ShouldEqual, 9*time.Minute)

			applied, err := c.ApplyPendingResume(context.Background())

			Convey("The seek should be issued relative to the manifest origin", func() {
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(engine.seekTargets(), ShouldResemble, []time.Duration{time.Minute})
			})
		})

		Convey("Cancelling should clear the queued position", func() {
			c.CancelPendingResume()

			So(c.ResumeInProgress(), ShouldBeFalse)
			So(c.PendingResumeTarget(), ShouldEqual, time.Duration(0))

			Convey("And a later apply should be a resolved no-op", func() {
				applied, err := c.ApplyPendingResume(context.Background())
				So(err, ShouldBeNil)
				So(applied, ShouldBeTrue)
				So(engine.seekTargets(), ShouldBeEmpty)
			})
		})
	})
}

func TestControllerReportLifecycle(t *testing.T) {
	Convey("Given a playing controller with progress reporting enabled", t, func() {
		viper.Set(key.ReportingEnable, true)
		viper.Set(key.ReportingInterval, 0)

		engine := newFakeEngine()
		reporter := &captureReporter{}
		c := NewController(engine, resumeTunables(), WithReporter(reporter))

		runCtx, cancel := context.WithCancel(context.Background())
		Reset(func() {
			cancel()
			_ = c.Close()
		})

		c.Start(runCtx)
		So(c.Play(adaptiveSource()), ShouldBeNil)

		c.mu.Lock()
		itemCtx := c.itemCtx
		c.mu.Unlock()
		So(itemCtx, ShouldNotBeNil)

		Convey("Progress reports run on the item context", func() {
			c.handlePosition(PositionUpdate{Display: time.Minute, State: StatePlaying})

			So(reporter.waitProgress(), ShouldBeTrue)
			So(reporter.lastProgressCtx(), ShouldEqual, itemCtx)
			So(itemCtx.Err(), ShouldBeNil)
		})

		Convey("Stop cancels the item context so in-flight reports die with it", func() {
			c.Stop()
			So(itemCtx.Err(), ShouldEqual, context.Canceled)
		})

		Convey("The next item gets a fresh context", func() {
			c.Stop()
			So(c.Play(adaptiveSource()), ShouldBeNil)

			c.mu.Lock()
			next := c.itemCtx
			c.mu.Unlock()

			So(itemCtx.Err(), ShouldEqual, context.Canceled)
			So(next.Err(), ShouldBeNil)
		})
	})
}
