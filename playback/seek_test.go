package playback

import (
	"testing"
	"time"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeekCompletionCoordinator(t *testing.T) {
	Convey("Given an adaptive stream of a 45 minute item", t, func() {
		coordinator := NewSeekCompletionCoordinator()
		st := NewSessionState()
		st.MarkAdaptive(true)

		now := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
		metadata := 45 * time.Minute

		input := func(mutate func(*SeekCompletionInput)) SeekCompletionInput {
			in := SeekCompletionInput{
				RawPosition:      0,
				EngineState:      StatePlaying,
				NaturalDuration:  mo.Some(32 * time.Minute),
				MetadataDuration: metadata,
				Adaptive:         true,
				Now:              now,
			}
			if mutate != nil {
				mutate(&in)
			}
			return in
		}

		Convey("When the engine cannot report a natural duration", func() {
			out := coordinator.HandleSeekCompleted(st, input(func(in *SeekCompletionInput) {
				in.NaturalDuration = mo.None[time.Duration]()
			}))

			Convey("Nothing should be detected", func() {
				So(out, ShouldResemble, SeekCompletionOutcome{})
			})
		})

		Convey("When a large seek to 13:00 made the server regenerate the manifest", func() {
			st.RecordLargeSeek(13*time.Minute, now.Add(-time.Second))
			st.DecrementPendingSeek()

			out := coordinator.HandleSeekCompleted(st, input(nil))

			Convey("The offset should be installed from the seek target", func() {
				So(out.OffsetCorrected, ShouldBeTrue)
				So(st.OffsetApplied(), ShouldBeTrue)
				So(st.ManifestOffset(), ShouldEqual, 13*time.Minute)
			})

			Convey("A corrective seek to the new manifest origin should be requested", func() {
				So(out.CorrectiveSeek.IsPresent(), ShouldBeTrue)
				So(out.CorrectiveSeek.MustGet(), ShouldEqual, time.Duration(0))
			})

			Convey("The display position should continue the absolute timeline", func() {
				So(st.DisplayPosition(5*time.Second, 0), ShouldEqual, 13*time.Minute+5*time.Second)
			})
		})

		Convey("When seeks are still in flight", func() {
			st.RecordLargeSeek(13*time.Minute, now.Add(-500*time.Millisecond))
			st.RecordLargeSeek(14*time.Minute, now.Add(-500*time.Millisecond))
			st.DecrementPendingSeek()

			out := coordinator.HandleSeekCompleted(st, input(nil))

			Convey("The correction should be skipped for this cycle", func() {
				So(out.OffsetCorrected, ShouldBeFalse)
				So(st.OffsetApplied(), ShouldBeFalse)
			})
		})

		Convey("When the pending count is stuck but the last seek is stale", func() {
			st.RecordLargeSeek(13*time.Minute, now.Add(-3*time.Second))

			out := coordinator.HandleSeekCompleted(st, input(nil))

			Convey("The correction should proceed anyway", func() {
				So(out.OffsetCorrected, ShouldBeTrue)
				So(st.ManifestOffset(), ShouldEqual, 13*time.Minute)
			})
		})

		Convey("When the manifest comes back truncated after the initial resume", func() {
			out := coordinator.HandleSeekCompleted(st, input(func(in *SeekCompletionInput) {
				in.NaturalDuration = mo.Some(10 * time.Minute)
				in.InitialSeekUnconfirmed = true
			}))

			Convey("Corruption should be flagged without a repair", func() {
				So(out.CorruptionDetected, ShouldBeTrue)
				So(out.OffsetCorrected, ShouldBeFalse)
				So(out.NudgePlay, ShouldBeFalse)
				So(st.OffsetApplied(), ShouldBeFalse)
			})

			Convey("A paused engine should get a play nudge", func() {
				paused := coordinator.HandleSeekCompleted(st, input(func(in *SeekCompletionInput) {
					in.NaturalDuration = mo.Some(10 * time.Minute)
					in.InitialSeekUnconfirmed = true
					in.EngineState = StatePaused
				}))
				So(paused.CorruptionDetected, ShouldBeTrue)
				So(paused.NudgePlay, ShouldBeTrue)
			})
		})

		Convey("When the shortfall is small or the resume is already confirmed", func() {
			Convey("A near-complete manifest should not be corruption", func() {
				out := coordinator.HandleSeekCompleted(st, input(func(in *SeekCompletionInput) {
					in.NaturalDuration = mo.Some(metadata - 5*time.Second)
					in.InitialSeekUnconfirmed = true
				}))
				So(out.CorruptionDetected, ShouldBeFalse)
			})

			Convey("A confirmed session should never flag corruption", func() {
				out := coordinator.HandleSeekCompleted(st, input(func(in *SeekCompletionInput) {
					in.NaturalDuration = mo.Some(10 * time.Minute)
					in.InitialSeekUnconfirmed = false
				}))
				So(out.CorruptionDetected, ShouldBeFalse)
			})
		})
	})
}
