package history

import (
	"testing"

	"github.com/gitman-101111/gelatinarm-sub002/config"
	"github.com/gitman-101111/gelatinarm-sub002/filesystem"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	filesystem.SetMemMapFs()
	lo.Must0(config.Setup())
}

func TestHistory(t *testing.T) {
	Convey("Given an item", t, func() {
		item := media.Item{
			ID:           "e3b1c4",
			Name:         "Pilot",
			SeriesID:     "a1f9d2",
			Type:         "Episode",
			RuntimeTicks: media.SecondsToTicks(45 * 60),
		}

		Convey("When saving a playback position", func() {
			err := Save(&item, media.SecondsToTicks(600), 22.2)

			Convey("Then the record should be retrievable", func() {
				So(err, ShouldBeNil)

				record, ok, err := Lookup(item.ID)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(record.Name, ShouldEqual, "Pilot")
				So(record.PositionTicks, ShouldEqual, media.SecondsToTicks(600))
				So(record.WatchedPercentage, ShouldEqual, 22.2)
			})

			Convey("Then a later save with a lower percentage should not regress it", func() {
				So(err, ShouldBeNil)
				So(Save(&item, media.SecondsToTicks(120), 4.4), ShouldBeNil)

				record, ok, err := Lookup(item.ID)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(record.WatchedPercentage, ShouldEqual, 22.2)
				So(record.PositionTicks, ShouldEqual, media.SecondsToTicks(120))
			})
		})

		Convey("When saving past the completion threshold", func() {
			So(Save(&item, media.SecondsToTicks(44*60), 97.7), ShouldBeNil)

			Convey("Then the resume position should reset to the beginning", func() {
				record, ok, err := Lookup(item.ID)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(record.PositionTicks, ShouldEqual, media.Ticks(0))
			})
		})

		Convey("When removing the record", func() {
			So(Save(&item, media.SecondsToTicks(600), 22.2), ShouldBeNil)
			So(Remove(item.ID), ShouldBeNil)

			Convey("Then the record should be gone", func() {
				_, ok, err := Lookup(item.ID)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}
