package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	. "github.com/smartystreets/goconvey/convey"
)

func resumeTunables() Tunables {
	return Tunables{
		StabilizationDelay: 0,
		SettleDelay:        0,
		AdaptiveRetry:      RetryBudget{Attempts: 5, Delay: time.Millisecond},
		DirectRetry:        RetryBudget{Attempts: 2, Delay: time.Millisecond},
	}
}

func TestResumeFlowCoordinator(t *testing.T) {
	Convey("Given an adaptive stream with a saved position of 10:00", t, func() {
		engine := newFakeEngine()
		control := &fakeControl{pending: true, target: 10 * time.Minute}

		t1 := resumeTunables()
		retry := NewResumeRetryCoordinator(t1.AdaptiveRetry, t1.DirectRetry)
		flow := NewResumeFlowCoordinator(engine, control, retry, t1)

		Convey("When the position converges on the third attempt", func() {
			control.applyResults = []bool{false, false, true}

			done, err := flow.Run(context.Background(), true, 0, false)

			Convey("The flow should finish successfully", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(control.calls(), ShouldEqual, 3)
				So(control.ResumeInProgress(), ShouldBeFalse)
			})

			Convey("Audio and video should be blacked out and restored", func() {
				So(engine.muted, ShouldResemble, []bool{true, false})
				So(engine.visible, ShouldResemble, []bool{false, true})
			})
		})

		Convey("When every attempt leaves the position stuck", func() {
			control.applyResults = []bool{false, false, false, false, false, false}
			engine.setPosition(3 * time.Second)

			done, err := flow.Run(context.Background(), true, 0, false)

			Convey("The flow should finish with a resume-stuck error", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldNotBeNil)

				var stuck *ResumeStuckError
				So(errors.As(err, &stuck), ShouldBeTrue)
				So(stuck.Target, ShouldEqual, 10*time.Minute)
				So(stuck.Current, ShouldEqual, 3*time.Second)
				So(stuck.Attempts, ShouldEqual, 6)
				So(IsPlaybackError(err), ShouldBeTrue)
			})

			Convey("The blackout should still be lifted", func() {
				So(engine.muted[len(engine.muted)-1], ShouldBeFalse)
				So(engine.visible[len(engine.visible)-1], ShouldBeTrue)
			})
		})

		Convey("When playback leaves the playing state during stabilization", func() {
			t2 := resumeTunables()
			t2.StabilizationDelay = 500 * time.Millisecond
			flow = NewResumeFlowCoordinator(engine, control, retry, t2)
			engine.setState(StatePaused)

			done, err := flow.Run(context.Background(), true, 0, false)

			Convey("The flow should abort so the next playing transition retries", func() {
				So(done, ShouldBeFalse)
				So(err, ShouldBeNil)
				So(control.calls(), ShouldEqual, 0)
				So(control.ResumeInProgress(), ShouldBeTrue)
			})
		})

		Convey("When a track change override is present", func() {
			done, err := flow.Run(context.Background(), true, media.SecondsToTicks(600), true)

			Convey("The override should be applied directly and the queued resume cancelled", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(engine.seekTargets(), ShouldResemble, []time.Duration{10 * time.Minute})
				So(control.cancels, ShouldEqual, 1)
				So(control.calls(), ShouldEqual, 0)
			})
		})

		Convey("When a track change override lands on a manifest with a nonzero start", func() {
			control.offset = 9 * time.Minute

			done, err := flow.Run(context.Background(), true, media.SecondsToTicks(600), true)

			Convey("The raw seek should be translated onto the manifest timeline", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(engine.seekTargets(), ShouldResemble, []time.Duration{time.Minute})
				So(control.cancels, ShouldEqual, 1)
			})

			Convey("An override before the manifest start should floor at zero", func() {
				control.cancels = 0
				engine2 := newFakeEngine()
				flow2 := NewResumeFlowCoordinator(engine2, control, retry, t1)

				done, err := flow2.Run(context.Background(), true, media.SecondsToTicks(300), true)
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(engine2.seekTargets(), ShouldResemble, []time.Duration{0})
			})
		})

		Convey("When nothing is pending and there is no override", func() {
			control.pending = false

			done, err := flow.Run(context.Background(), true, 0, false)

			Convey("The flow should be a no-op", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(control.calls(), ShouldEqual, 0)
				So(engine.muted, ShouldBeEmpty)
			})
		})

		Convey("When the stream is direct-play", func() {
			control.applyResults = []bool{true}

			done, err := flow.Run(context.Background(), false, 0, false)

			Convey("No blackout should be used", func() {
				So(done, ShouldBeTrue)
				So(err, ShouldBeNil)
				So(engine.muted, ShouldBeEmpty)
				So(engine.visible, ShouldBeEmpty)
			})
		})
	})
}
