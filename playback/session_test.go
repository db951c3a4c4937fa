package playback

import (
	"testing"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSessionState(t *testing.T) {
	Convey("Given a fresh session state", t, func() {
		st := NewSessionState()

		Convey("The display position should pass the raw position through", func() {
			So(st.DisplayPosition(42*time.Second, 0), ShouldEqual, 42*time.Second)
		})

		Convey("When an external manifest offset is present", func() {
			Convey("It should be added to the raw position", func() {
				So(st.DisplayPosition(5*time.Second, 13*time.Minute), ShouldEqual, 13*time.Minute+5*time.Second)
			})

			Convey("It should take precedence over an applied session offset", func() {
				st.ApplyManifestOffset(7 * time.Minute)
				So(st.DisplayPosition(5*time.Second, 13*time.Minute), ShouldEqual, 13*time.Minute+5*time.Second)
			})
		})

		Convey("When a manifest offset has been applied", func() {
			st.ApplyManifestOffset(13 * time.Minute)

			Convey("The display position should include it", func() {
				So(st.DisplayPosition(5*time.Second, 0), ShouldEqual, 13*time.Minute+5*time.Second)
			})
		})

		Convey("When a large seek is recorded", func() {
			now := time.Now()
			st.RecordLargeSeek(13*time.Minute, now)

			Convey("The expectation and pending count should be set", func() {
				So(st.ExpectedSeekTarget(), ShouldEqual, 13*time.Minute)
				So(st.LastSeekTime(), ShouldEqual, now)
				So(st.PendingSeekCount(), ShouldEqual, 1)
			})

			Convey("Applying the manifest offset should clear both", func() {
				st.ApplyManifestOffset(13 * time.Minute)
				So(st.ExpectedSeekTarget(), ShouldEqual, time.Duration(0))
				So(st.PendingSeekCount(), ShouldEqual, 0)
				So(st.OffsetApplied(), ShouldBeTrue)
			})
		})

		Convey("The pending seek count should never go negative", func() {
			st.DecrementPendingSeek()
			st.DecrementPendingSeek()
			So(st.PendingSeekCount(), ShouldEqual, 0)

			st.RecordLargeSeek(time.Minute, time.Now())
			st.DecrementPendingSeek()
			st.DecrementPendingSeek()
			So(st.PendingSeekCount(), ShouldEqual, 0)
		})

		Convey("The track change override should be strictly one-shot", func() {
			So(st.ConsumePendingTrackChangeSeek().IsAbsent(), ShouldBeTrue)

			st.SetPendingTrackChangeSeek(media.SecondsToTicks(600))

			first := st.ConsumePendingTrackChangeSeek()
			So(first.IsPresent(), ShouldBeTrue)
			So(first.MustGet(), ShouldEqual, media.SecondsToTicks(600))

			So(st.ConsumePendingTrackChangeSeek().IsAbsent(), ShouldBeTrue)
		})

		Convey("When the state carries a full session", func() {
			st.SetRawPosition(9 * time.Minute)
			st.MarkAdaptive(true)
			st.MarkTrackChange(true)
			st.RecordLargeSeek(13*time.Minute, time.Now())
			st.ApplyManifestOffset(13 * time.Minute)
			st.SetPendingTrackChangeSeek(media.SecondsToTicks(600))

			Convey("Reset should return every field to its default", func() {
				st.Reset()

				So(st.RawPosition(), ShouldEqual, time.Duration(0))
				So(st.ManifestOffset(), ShouldEqual, time.Duration(0))
				So(st.OffsetApplied(), ShouldBeFalse)
				So(st.IsAdaptive(), ShouldBeFalse)
				So(st.IsTrackChange(), ShouldBeFalse)
				So(st.PendingSeekCount(), ShouldEqual, 0)
				So(st.ExpectedSeekTarget(), ShouldEqual, time.Duration(0))
				So(st.LastSeekTime().IsZero(), ShouldBeTrue)
				So(st.ConsumePendingTrackChangeSeek().IsAbsent(), ShouldBeTrue)
			})
		})
	})
}
