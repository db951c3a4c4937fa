package playback

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestResumeRetryCoordinator(t *testing.T) {
	Convey("Given per-stream-kind retry budgets", t, func() {
		coordinator := NewResumeRetryCoordinator(
			RetryBudget{Attempts: 5, Delay: time.Millisecond},
			RetryBudget{Attempts: 2, Delay: time.Millisecond},
		)

		Convey("Budget should pick the adaptive budget for adaptive streams", func() {
			So(coordinator.Budget(true).Attempts, ShouldEqual, 5)
			So(coordinator.Budget(false).Attempts, ShouldEqual, 2)
		})

		Convey("When the attempt succeeds on the third try", func() {
			calls := 0
			attempt := func(context.Context) (bool, error) {
				calls++
				return calls >= 3, nil
			}
			stillPending := func() bool { return true }

			resolved, attempts := coordinator.Retry(context.Background(), true, attempt, stillPending)

			Convey("It should report resolved with three attempts spent", func() {
				So(resolved, ShouldBeTrue)
				So(attempts, ShouldEqual, 3)
				So(calls, ShouldEqual, 3)
			})
		})

		Convey("When another path resolves the resume mid-retry", func() {
			attempt := func(context.Context) (bool, error) { return false, nil }
			stillPending := func() bool { return false }

			resolved, attempts := coordinator.Retry(context.Background(), true, attempt, stillPending)

			Convey("It should report resolved without spending an attempt", func() {
				So(resolved, ShouldBeTrue)
				So(attempts, ShouldEqual, 0)
			})
		})

		Convey("When every attempt fails", func() {
			calls := 0
			attempt := func(context.Context) (bool, error) {
				calls++
				return false, nil
			}
			stillPending := func() bool { return true }

			resolved, attempts := coordinator.Retry(context.Background(), false, attempt, stillPending)

			Convey("It should report exhaustion with the full budget spent", func() {
				So(resolved, ShouldBeFalse)
				So(attempts, ShouldEqual, 2)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When attempts keep erroring", func() {
			attempt := func(context.Context) (bool, error) {
				return false, context.DeadlineExceeded
			}
			stillPending := func() bool { return true }

			resolved, attempts := coordinator.Retry(context.Background(), false, attempt, stillPending)

			Convey("Errors should count against the budget, not abort it", func() {
				So(resolved, ShouldBeFalse)
				So(attempts, ShouldEqual, 2)
			})
		})

		Convey("When the context is cancelled before the first delay elapses", func() {
			slow := NewResumeRetryCoordinator(
				RetryBudget{Attempts: 3, Delay: time.Minute},
				RetryBudget{Attempts: 3, Delay: time.Minute},
			)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			attempt := func(context.Context) (bool, error) { return true, nil }
			stillPending := func() bool { return true }

			resolved, attempts := slow.Retry(ctx, true, attempt, stillPending)

			Convey("It should stop immediately without attempting", func() {
				So(resolved, ShouldBeFalse)
				So(attempts, ShouldEqual, 0)
			})
		})
	})
}
