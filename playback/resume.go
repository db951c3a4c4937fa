package playback

import (
	"context"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
)

// ResumeFlowCoordinator applies the saved resume position exactly once per
// item, on the first transition into the playing state.
//
// On adaptive streams the flow hides video and mutes audio first: the server
// starts the stream at zero and regenerates its manifest at the target, and
// without the blackout the viewer would glimpse the opening frames of the
// item before the jump (a spoiler for episodic content).
//
// The coordinator itself is stateless across items; the orchestrator owns the
// once-per-item and re-entrancy guards on its dispatch goroutine.
type ResumeFlowCoordinator struct {
	engine  Engine
	control PlaybackControl
	retry   *ResumeRetryCoordinator

	stabilization time.Duration
	settle        time.Duration
}

// NewResumeFlowCoordinator wires the flow to its collaborators.
func NewResumeFlowCoordinator(engine Engine, control PlaybackControl, retry *ResumeRetryCoordinator, t Tunables) *ResumeFlowCoordinator {
	return &ResumeFlowCoordinator{
		engine:        engine,
		control:       control,
		retry:         retry,
		stabilization: t.StabilizationDelay,
		settle:        t.SettleDelay,
	}
}

// Run executes the resume flow. It blocks for up to the stabilization delay
// plus the retry budget and must therefore be called off the dispatch
// goroutine, bound to the per-item context.
//
// done reports whether the flow is finished for this item: true on success,
// on no-op, and on exhaustion; false when the stabilization wait was aborted
// by a state change, in which case the next playing transition retries. A
// *ResumeStuckError is returned when the budget ran out with the target
// still pending.
func (r *ResumeFlowCoordinator) Run(ctx context.Context, adaptive bool, override media.Ticks, hasOverride bool) (done bool, err error) {
	if !hasOverride && !r.control.ResumeInProgress() {
		return true, nil
	}

	target := r.control.PendingResumeTarget()
	if hasOverride {
		target = override.Duration()
	}

	if adaptive {
		// Anti-spoiler blackout while the server regenerates the manifest at
		// the target.
		r.blackout(true)
		defer r.blackout(false)

		if !r.waitStable(ctx) {
			// Cancelled, or playback moved away from the playing state during
			// the wait. The next playing transition retries.
			return false, nil
		}
	}

	applied, applyErr := r.applyOnce(ctx, override, hasOverride)
	if applyErr != nil {
		log.Debugf("initial resume apply failed: %v", applyErr)
	}

	attempts := 1
	if !applied {
		var retries int
		applied, retries = r.retry.Retry(ctx, adaptive, func(ctx context.Context) (bool, error) {
			return r.control.ApplyPendingResume(ctx)
		}, r.control.ResumeInProgress)
		attempts += retries
	}

	if !applied {
		current := r.engine.Position().OrElse(0)
		return true, &ResumeStuckError{Current: current, Target: target, Attempts: attempts}
	}

	// Let the engine settle on the new position before lifting the blackout.
	sleepCtx(ctx, r.settle)
	return true, nil
}

// applyOnce performs the first resume attempt, preferring the
// post-track-change override when one is pending.
func (r *ResumeFlowCoordinator) applyOnce(ctx context.Context, override media.Ticks, hasOverride bool) (bool, error) {
	if hasOverride {
		// The override is a display-timeline position; the engine speaks the
		// manifest's zero-based one.
		raw := override.Duration() - r.control.ManifestOffset()
		if raw < 0 {
			raw = 0
		}
		if err := r.engine.SeekTo(raw); err != nil {
			return false, err
		}
		r.control.CancelPendingResume()
		return true, nil
	}
	return r.control.ApplyPendingResume(ctx)
}

// waitStable sleeps through the stabilization delay, aborting early when the
// engine leaves the playing state or the context is cancelled.
func (r *ResumeFlowCoordinator) waitStable(ctx context.Context) bool {
	const poll = 100 * time.Millisecond

	deadline := time.Now().Add(r.stabilization)
	for time.Now().Before(deadline) {
		if !sleepCtx(ctx, poll) {
			return false
		}
		if r.engine.State() != StatePlaying {
			return false
		}
	}
	return true
}

func (r *ResumeFlowCoordinator) blackout(on bool) {
	if err := r.engine.SetMuted(on); err != nil {
		log.Debugf("set muted %v: %v", on, err)
	}
	if err := r.engine.SetVideoVisible(!on); err != nil {
		log.Debugf("set video visible %v: %v", !on, err)
	}
}
