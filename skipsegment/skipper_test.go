package skipsegment

import (
	"testing"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestSkipper(t *testing.T) {
	Convey("Given an item with intro and outro windows", t, func() {
		viper.Set(key.SkipSegments, true)
		viper.Set(key.SkipAutoIntro, true)
		viper.Set(key.SkipAutoOutro, true)

		item := &media.Item{ID: "8f2ac1", Name: "Part Two"}

		skipper := NewSkipper()
		skipper.itemID = item.ID
		skipper.windows = &Windows{
			Intro:    Interval{Start: 30 * time.Second, End: 2 * time.Minute},
			Outro:    Interval{Start: 42 * time.Minute, End: 44 * time.Minute},
			HasIntro: true,
			HasOutro: true,
		}

		Convey("A position inside the intro should skip to its end", func() {
			target, ok := skipper.SkipTarget(item, time.Minute)
			So(ok, ShouldBeTrue)
			So(target, ShouldEqual, 2*time.Minute)

			Convey("But only once per window", func() {
				_, again := skipper.SkipTarget(item, time.Minute)
				So(again, ShouldBeFalse)
			})
		})

		Convey("A position outside every window should not skip", func() {
			_, ok := skipper.SkipTarget(item, 10*time.Minute)
			So(ok, ShouldBeFalse)
		})

		Convey("A position inside the outro should skip to its end", func() {
			target, ok := skipper.SkipTarget(item, 43*time.Minute)
			So(ok, ShouldBeTrue)
			So(target, ShouldEqual, 44*time.Minute)
		})

		Convey("When auto-skipping is disabled", func() {
			viper.Set(key.SkipAutoIntro, false)

			_, ok := skipper.SkipTarget(item, time.Minute)
			So(ok, ShouldBeFalse)

			Convey("The window still reads as skippable for the manual button", func() {
				So(skipper.InWindow(item, time.Minute), ShouldBeTrue)
			})
		})

		Convey("InWindow follows the window edges", func() {
			So(skipper.InWindow(item, 29*time.Second), ShouldBeFalse)
			So(skipper.InWindow(item, 30*time.Second), ShouldBeTrue)
			So(skipper.InWindow(item, 2*time.Minute), ShouldBeFalse)
			So(skipper.InWindow(item, 43*time.Minute), ShouldBeTrue)
		})

		Convey("When segment retrieval is disabled entirely", func() {
			viper.Set(key.SkipSegments, false)

			_, ok := skipper.SkipTarget(item, time.Minute)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestInterval(t *testing.T) {
	Convey("Interval containment should be half-open", t, func() {
		interval := Interval{Start: 30 * time.Second, End: 2 * time.Minute}

		So(interval.Contains(30*time.Second), ShouldBeTrue)
		So(interval.Contains(time.Minute), ShouldBeTrue)
		So(interval.Contains(2*time.Minute), ShouldBeFalse)
		So(interval.Contains(29*time.Second), ShouldBeFalse)
	})
}
