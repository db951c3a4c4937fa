package playback

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/util"
	"github.com/samber/mo"
)

// PositionUpdate is one published snapshot of the reconciled timeline.
type PositionUpdate struct {
	// Display is the absolute timeline position regardless of manifest resets.
	Display time.Duration

	// Duration is the authoritative item runtime.
	Duration time.Duration

	// Percentage is Display/Duration in [0,100].
	Percentage float64

	// SeeksPending is true while seek completions are outstanding; progress
	// reporting is skipped then so a stale position is never reported.
	SeeksPending bool

	State State
}

// Orchestrator is the top-level playback state machine. Engine callbacks and
// timer ticks may originate on arbitrary goroutines; every one of them is
// marshalled through the commands channel onto the single dispatch goroutine
// that owns SessionState and all published values. The 1 Hz poll tick and the
// real state-change callbacks race by design; all mutations are idempotent so
// duplicates are tolerated rather than prevented.
type Orchestrator struct {
	engine   Engine
	control  PlaybackControl
	tunables Tunables

	session   *SessionState
	buffering *BufferingStateCoordinator
	seekCoord *SeekCompletionCoordinator
	resume    *ResumeFlowCoordinator

	// commands marshals closures onto the dispatch goroutine.
	commands chan func()

	// Everything below is owned by the dispatch goroutine.
	src         *media.StreamSource
	itemCtx     context.Context
	itemCancel  context.CancelFunc
	engineState State

	// Resume re-entrancy guard. A plain pair of booleans is enough because
	// they are only touched on the dispatch goroutine.
	resumeInProgress bool
	resumeDone       bool

	// initialSeekUnconfirmed is true from media-opened until the resume flow
	// settles; corruption detection only applies in that window.
	initialSeekUnconfirmed bool

	// initGate serializes item initialization against the previous item's
	// teardown. Capacity 1: switching items never runs both concurrently.
	initGate chan struct{}

	runCtx    context.Context
	runCancel context.CancelFunc
	started   atomic.Bool
	stopped   chan struct{}

	// Observable callbacks, assigned before Start and invoked on the dispatch
	// goroutine.
	OnPosition     func(PositionUpdate)
	OnStateChanged func(State)
	OnMediaEnded   func()
	OnError        func(error)
	NavigateBack   func()
}

// NewOrchestrator assembles the state machine and its coordinators.
func NewOrchestrator(engine Engine, control PlaybackControl, t Tunables) *Orchestrator {
	retry := NewResumeRetryCoordinator(t.AdaptiveRetry, t.DirectRetry)
	o := &Orchestrator{
		engine:    engine,
		control:   control,
		tunables:  t,
		session:   NewSessionState(),
		buffering: NewBufferingStateCoordinator(t.BufferingTimeout, t.RecoveryExtension),
		seekCoord: NewSeekCompletionCoordinator(),
		resume:    NewResumeFlowCoordinator(engine, control, retry, t),
		commands:  make(chan func(), 64),
		initGate:  make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	// runCtx exists from construction so commands posted before Start queue
	// instead of panicking; Start binds it to the caller's context.
	o.runCtx, o.runCancel = context.WithCancel(context.Background())
	return o
}

// Session exposes the state holder read-only; only this orchestrator and the
// seek-completion coordinator mutate it.
func (o *Orchestrator) Session() *SessionState {
	return o.session
}

// Start launches the dispatch goroutine. The orchestrator runs until ctx is
// cancelled or Close is called. Subsequent calls are no-ops.
func (o *Orchestrator) Start(ctx context.Context) {
	if o.started.Swap(true) {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			o.runCancel()
		case <-o.runCtx.Done():
		}
	}()
	go o.run()
}

// Close stops the dispatch goroutine and cancels the current item's tasks.
func (o *Orchestrator) Close() {
	o.runCancel()
	if o.started.Load() {
		<-o.stopped
	}
}

func (o *Orchestrator) run() {
	defer close(o.stopped)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	events := o.engine.Events()
	for {
		select {
		case <-o.runCtx.Done():
			if o.itemCancel != nil {
				o.itemCancel()
			}
			return
		case fn := <-o.commands:
			fn()
		case now := <-ticker.C:
			o.handleTick(now)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			o.handleEngineEvent(ev, time.Now())
		}
	}
}

// post queues a closure for the dispatch goroutine. Safe from any goroutine
// except the dispatch goroutine itself when the queue is full.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.commands <- fn:
	case <-o.runCtx.Done():
	}
}

// do posts a closure and waits for it to run.
func (o *Orchestrator) do(fn func()) {
	done := make(chan struct{})
	o.post(func() {
		fn()
		close(done)
	})
	select {
	case <-done:
	case <-o.runCtx.Done():
	}
}

// StartItem tears down the previous item and initializes playback of src.
// Initialization and teardown are mutually exclusive; concurrent callers
// queue on the init gate.
func (o *Orchestrator) StartItem(src *media.StreamSource) error {
	return o.startItem(src, mo.None[media.Ticks]())
}

// ChangeTrack reloads playback with a different stream of the same item
// (a new audio/subtitle selection forces a fresh manifest). The current
// display position is carried over as a one-shot seek override consumed by
// the next resume attempt.
func (o *Orchestrator) ChangeTrack(src *media.StreamSource) error {
	var at media.Ticks
	o.do(func() {
		at = media.DurationToTicks(o.displayPosition())
	})
	return o.startItem(src, mo.Some(at))
}

func (o *Orchestrator) startItem(src *media.StreamSource, trackChangeAt mo.Option[media.Ticks]) error {
	if err := src.Validate(); err != nil {
		return err
	}

	o.initGate <- struct{}{}
	defer func() { <-o.initGate }()

	o.do(func() { o.teardownItem() })

	itemCtx, cancel := context.WithCancel(o.runCtx)

	o.do(func() {
		o.src = src
		o.itemCtx = itemCtx
		o.itemCancel = cancel
		o.session.Reset()
		o.session.MarkAdaptive(src.Kind == media.Adaptive)
		o.buffering.End()
		o.resumeInProgress = false
		o.resumeDone = false
		o.initialSeekUnconfirmed = true
		o.engineState = StateOpening

		if target, ok := trackChangeAt.Get(); ok {
			o.session.MarkTrackChange(true)
			o.session.SetPendingTrackChangeSeek(target)
		}
	})

	if err := o.engine.Load(src); err != nil {
		o.do(func() { o.teardownItem() })
		return &MediaFailedError{Cause: err}
	}
	return nil
}

// Stop cancels the current item's async chains and clears playback state.
func (o *Orchestrator) Stop() {
	o.initGate <- struct{}{}
	defer func() { <-o.initGate }()
	o.do(func() { o.teardownItem() })
}

// teardownItem runs on the dispatch goroutine.
func (o *Orchestrator) teardownItem() {
	if o.itemCancel != nil {
		o.itemCancel()
		o.itemCancel = nil
		o.itemCtx = nil
	}
	o.src = nil
	o.session.Reset()
	o.buffering.End()
	o.resumeInProgress = false
	o.resumeDone = false
	o.engineState = StateNone
}

// SeekTo moves playback to an absolute timeline position. A user seek
// explicitly and synchronously cancels any queued resume so an in-flight
// retry can never re-apply a stale target.
func (o *Orchestrator) SeekTo(target time.Duration) {
	// Cancellation must not wait for the dispatch queue.
	o.control.CancelPendingResume()
	o.post(func() { o.doSeek(target, time.Now()) })
}

// SeekBy moves playback relative to the current display position.
func (o *Orchestrator) SeekBy(delta time.Duration) {
	o.control.CancelPendingResume()
	o.post(func() { o.doSeek(o.displayPosition()+delta, time.Now()) })
}

func (o *Orchestrator) doSeek(target time.Duration, now time.Time) {
	if o.src == nil {
		return
	}
	runtime := o.src.Item.Runtime()
	if runtime > 0 {
		target = util.Clamp(target, 0, runtime)
	} else if target < 0 {
		target = 0
	}

	o.resumeDone = true

	raw := target
	if o.session.IsAdaptive() {
		// The engine's timeline may not start at the absolute origin.
		raw = target - o.effectiveOffset()
		if raw < 0 {
			raw = 0
		}
		o.session.RecordLargeSeek(target, now)
	}

	if err := o.engine.SeekTo(raw); err != nil {
		log.Warnf("seek to %s failed: %v", target, err)
		o.session.DecrementPendingSeek()
	}
}

// PlayPause toggles between the playing and paused engine states.
func (o *Orchestrator) PlayPause() {
	o.post(func() {
		var err error
		if o.engineState == StatePlaying {
			err = o.engine.Pause()
		} else {
			err = o.engine.Play()
		}
		if err != nil {
			log.Warnf("play/pause: %v", err)
		}
	})
}

// effectiveOffset is the correction between engine time and absolute time.
func (o *Orchestrator) effectiveOffset() time.Duration {
	if ext := o.control.ManifestOffset(); ext > 0 {
		return ext
	}
	if o.session.OffsetApplied() {
		return o.session.ManifestOffset()
	}
	return 0
}

// displayPosition snapshots the engine defensively and reconciles. A failed
// property read falls back to the last known raw position.
func (o *Orchestrator) displayPosition() time.Duration {
	raw := o.engine.Position().OrElse(o.session.RawPosition())
	o.session.SetRawPosition(raw)
	return o.session.DisplayPosition(raw, o.control.ManifestOffset())
}

func (o *Orchestrator) handleTick(now time.Time) {
	if o.src == nil {
		return
	}

	if o.buffering.Active() {
		switch o.buffering.Check(now, o.session.IsAdaptive()) {
		case BufferingAttemptRecovery:
			log.Infof("buffering past deadline, attempting one pause/play recovery")
			ctx := o.itemCtx
			go o.recoveryCycle(ctx)
		case BufferingFail:
			o.failTimeout(o.buffering.Elapsed(now))
		}
	}

	o.publish()
}

// recoveryCycle runs off the dispatch goroutine, bound to the item context.
func (o *Orchestrator) recoveryCycle(ctx context.Context) {
	if ctx == nil {
		return
	}
	if err := o.engine.Pause(); err != nil {
		log.Debugf("recovery pause: %v", err)
	}
	if !sleepCtx(ctx, o.tunables.RecoveryPause) {
		return
	}
	if err := o.engine.Play(); err != nil {
		log.Debugf("recovery play: %v", err)
	}
}

func (o *Orchestrator) failTimeout(waited time.Duration) {
	err := &TimeoutError{Waited: waited}
	log.Errorf("%v", err)
	if o.OnError != nil {
		o.OnError(err)
	}
	o.scheduleNavigateBack()
}

// scheduleNavigateBack arms the delayed auto-navigate-back, cancellable with
// the item.
func (o *Orchestrator) scheduleNavigateBack() {
	ctx := o.itemCtx
	if ctx == nil || o.NavigateBack == nil {
		return
	}
	go func() {
		if !sleepCtx(ctx, o.tunables.NavigateBackDelay) {
			return
		}
		o.post(func() {
			if o.NavigateBack != nil {
				o.NavigateBack()
			}
		})
	}()
}

func (o *Orchestrator) handleEngineEvent(ev EngineEvent, now time.Time) {
	if o.src == nil {
		return
	}

	switch ev.Kind {
	case EventStateChanged:
		o.handleStateChanged(ev.State, now)
	case EventMediaOpened:
		o.initialSeekUnconfirmed = true
		o.publish()
	case EventSeekCompleted:
		o.handleSeekCompleted(ev.Position, now)
	case EventMediaEnded:
		o.handleStateChanged(StateStopped, now)
		if o.OnMediaEnded != nil {
			o.OnMediaEnded()
		}
	case EventMediaFailed:
		err := &MediaFailedError{Cause: ev.Err}
		log.Errorf("%v", err)
		if o.OnError != nil {
			o.OnError(err)
		}
		o.scheduleNavigateBack()
	}
}

func (o *Orchestrator) handleStateChanged(next State, now time.Time) {
	prev := o.engineState
	if next == prev {
		return
	}
	o.engineState = next

	// Buffering edges.
	if next == StateBuffering {
		o.buffering.Begin(now)
	} else if prev == StateBuffering {
		o.buffering.End()
	}

	if next == StatePlaying {
		o.maybeStartResume()
	}

	if o.OnStateChanged != nil {
		o.OnStateChanged(next)
	}
	o.publish()
}

// maybeStartResume launches the resume flow on the first playing transition.
// No-op when already in progress or already resolved for this item.
func (o *Orchestrator) maybeStartResume() {
	if o.resumeInProgress || o.resumeDone {
		return
	}

	override, hasOverride := o.session.ConsumePendingTrackChangeSeek().Get()
	if !hasOverride && !o.control.ResumeInProgress() {
		o.resumeDone = true
		o.initialSeekUnconfirmed = false
		return
	}

	o.resumeInProgress = true
	ctx := o.itemCtx
	adaptive := o.session.IsAdaptive()

	go func() {
		done, err := o.resume.Run(ctx, adaptive, override, hasOverride)
		o.post(func() {
			o.resumeInProgress = false
			if !done {
				// Stabilization aborted; re-arm the one-shot override so the
				// next playing transition can pick it up again.
				if hasOverride {
					o.session.SetPendingTrackChangeSeek(override)
				}
				return
			}
			o.resumeDone = true
			o.initialSeekUnconfirmed = false
			o.session.MarkTrackChange(false)
			if err != nil {
				log.Errorf("%v", err)
				if o.OnError != nil {
					o.OnError(err)
				}
				o.scheduleNavigateBack()
			}
		})
	}()
}

func (o *Orchestrator) handleSeekCompleted(raw time.Duration, now time.Time) {
	o.session.DecrementPendingSeek()
	o.session.SetRawPosition(raw)

	out := o.seekCoord.HandleSeekCompleted(o.session, SeekCompletionInput{
		RawPosition:            raw,
		EngineState:            o.engineState,
		NaturalDuration:        o.engine.Duration(),
		MetadataDuration:       o.src.Item.Runtime(),
		Adaptive:               o.session.IsAdaptive(),
		InitialSeekUnconfirmed: o.initialSeekUnconfirmed,
		Now:                    now,
	})

	if target, ok := out.CorrectiveSeek.Get(); ok {
		// Realign the engine with the regenerated manifest's origin.
		if err := o.engine.SeekTo(target); err != nil {
			log.Warnf("corrective seek: %v", err)
		}
	}

	if out.NudgePlay {
		ctx := o.itemCtx
		go func() {
			if !sleepCtx(ctx, 500*time.Millisecond) {
				return
			}
			if err := o.engine.Play(); err != nil {
				log.Debugf("corruption nudge play: %v", err)
			}
		}()
	}

	o.publish()
}

// publish recomputes the reconciled position and pushes it to the observer.
// Idempotent; called from ticks and event edges alike.
func (o *Orchestrator) publish() {
	if o.OnPosition == nil || o.src == nil {
		return
	}

	display := o.displayPosition()
	runtime := o.src.Item.Runtime()
	pct := 0.0
	if runtime > 0 {
		pct = util.Clamp(float64(display)/float64(runtime)*100, 0, 100)
	}

	o.OnPosition(PositionUpdate{
		Display:      display,
		Duration:     runtime,
		Percentage:   pct,
		SeeksPending: o.session.PendingSeekCount() > 0,
		State:        o.engineState,
	})
}
