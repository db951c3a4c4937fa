package playback

import "time"

// BufferingAction is what the orchestrator should do after a deadline check.
type BufferingAction int

const (
	// BufferingNone means the episode is still within its deadline.
	BufferingNone BufferingAction = iota

	// BufferingAttemptRecovery asks for one pause/play cycle and extends the
	// deadline. Issued at most once per episode.
	BufferingAttemptRecovery

	// BufferingFail means the episode is unrecoverable: stop the timer,
	// surface a timeout error, navigate back.
	BufferingFail
)

type bufferingPhase int

const (
	bufferingIdle bufferingPhase = iota
	bufferingActive
	bufferingFailed
)

// BufferingStateCoordinator tracks one buffering episode and drives its
// timeout deadline. It holds no timer of its own: the orchestrator's 1 Hz
// tick calls Check. At most one recovery attempt is made per episode, so a
// stream that never recovers fails instead of cycling pause/play forever.
type BufferingStateCoordinator struct {
	timeout   time.Duration
	extension time.Duration

	phase             bufferingPhase
	startedAt         time.Time
	deadline          time.Time
	recoveryAttempted bool
}

// NewBufferingStateCoordinator builds a coordinator with the given episode
// timeout and post-recovery deadline extension.
func NewBufferingStateCoordinator(timeout, extension time.Duration) *BufferingStateCoordinator {
	return &BufferingStateCoordinator{timeout: timeout, extension: extension}
}

// Begin starts a buffering episode. Calling it again while an episode is
// active is a no-op; the original deadline stands.
func (b *BufferingStateCoordinator) Begin(now time.Time) {
	if b.phase == bufferingActive {
		return
	}
	b.phase = bufferingActive
	b.startedAt = now
	b.deadline = now.Add(b.timeout)
	b.recoveryAttempted = false
}

// End clears the episode. Called when the engine leaves the buffering state.
func (b *BufferingStateCoordinator) End() {
	b.phase = bufferingIdle
	b.recoveryAttempted = false
}

// Active reports whether a buffering episode is in progress.
func (b *BufferingStateCoordinator) Active() bool {
	return b.phase == bufferingActive
}

// Elapsed is how long the current episode has lasted. A failed episode keeps
// reporting its duration so the timeout error can carry it.
func (b *BufferingStateCoordinator) Elapsed(now time.Time) time.Duration {
	if b.phase == bufferingIdle {
		return 0
	}
	return now.Sub(b.startedAt)
}

// Check evaluates the deadline. While the deadline has not passed it returns
// BufferingNone. Past the deadline, an adaptive stream gets exactly one
// recovery attempt with an extended deadline; after that, or immediately for
// a direct-play stream, the episode fails.
func (b *BufferingStateCoordinator) Check(now time.Time, adaptive bool) BufferingAction {
	if b.phase != bufferingActive {
		return BufferingNone
	}
	if now.Before(b.deadline) {
		return BufferingNone
	}

	if adaptive && !b.recoveryAttempted {
		b.recoveryAttempted = true
		b.deadline = now.Add(b.extension)
		return BufferingAttemptRecovery
	}

	b.phase = bufferingFailed
	return BufferingFail
}

// RecoveryAttempted reports whether this episode already spent its one
// recovery attempt.
func (b *BufferingStateCoordinator) RecoveryAttempted() bool {
	return b.recoveryAttempted
}
