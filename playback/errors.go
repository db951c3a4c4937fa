package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/util"
)

// Errors raised by this package terminate the current playback session, never
// the application. Callers can identify them with errors.As and the marker
// interface below.

// Error is implemented by every error this package raises.
type Error interface {
	error
	mediaPlaybackError()
}

// ResumeStuckError reports that the saved resume position could not be
// applied within the retry budget.
type ResumeStuckError struct {
	Current  time.Duration
	Target   time.Duration
	Attempts int
}

func (e *ResumeStuckError) Error() string {
	return fmt.Sprintf("resume stuck at %s, target %s, gave up after %s",
		util.FormatDuration(e.Current),
		util.FormatDuration(e.Target),
		util.Quantify(e.Attempts, "attempt", "attempts"))
}

func (e *ResumeStuckError) mediaPlaybackError() {}

// TimeoutError reports a buffering episode that outlived its deadline even
// after the bounded recovery attempt.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("playback timed out after buffering for %s", util.FormatDuration(e.Waited))
}

func (e *TimeoutError) mediaPlaybackError() {}

// MediaFailedError wraps a terminal engine failure.
type MediaFailedError struct {
	Cause error
}

func (e *MediaFailedError) Error() string {
	return fmt.Sprintf("media playback failed: %v", e.Cause)
}

func (e *MediaFailedError) Unwrap() error { return e.Cause }

func (e *MediaFailedError) mediaPlaybackError() {}

// IsPlaybackError reports whether err originated in this subsystem.
func IsPlaybackError(err error) bool {
	var pe Error
	return errors.As(err, &pe)
}
