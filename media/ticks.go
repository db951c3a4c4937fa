// Package media defines the item and stream model shared between the playback
// engine, progress reporting, and the local watch history.
package media

import "time"

// Ticks is the media server's position unit: one tick is 100 nanoseconds.
// Resume targets and progress reports cross the wire in ticks; everything
// inside the playback engine works in time.Duration.
type Ticks int64

// TicksPerSecond is the number of server ticks in one second.
const TicksPerSecond Ticks = 10_000_000

// Duration converts server ticks to a time.Duration.
func (t Ticks) Duration() time.Duration {
	return time.Duration(t) * 100 * time.Nanosecond
}

// Seconds returns the tick position as floating-point seconds.
func (t Ticks) Seconds() float64 {
	return float64(t) / float64(TicksPerSecond)
}

// DurationToTicks converts a time.Duration to server ticks.
func DurationToTicks(d time.Duration) Ticks {
	return Ticks(d / (100 * time.Nanosecond))
}

// SecondsToTicks converts floating-point seconds to server ticks.
func SecondsToTicks(s float64) Ticks {
	return Ticks(s * float64(TicksPerSecond))
}
