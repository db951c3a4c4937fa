package playback

import (
	"context"
	"sync"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/samber/mo"
)

// fakeEngine is a scriptable Engine for coordinator and orchestrator tests.
type fakeEngine struct {
	mu sync.Mutex

	position mo.Option[time.Duration]
	duration mo.Option[time.Duration]
	state    State

	events chan EngineEvent

	loads   []*media.StreamSource
	seeks   []time.Duration
	seekErr error
	plays   int
	pauses  int
	muted   []bool
	visible []bool

	closed bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		state:  StatePlaying,
		events: make(chan EngineEvent, 16),
	}
}

func (f *fakeEngine) Load(src *media.StreamSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, src)
	return nil
}

func (f *fakeEngine) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeEngine) SeekTo(pos time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seeks = append(f.seeks, pos)
	return nil
}

func (f *fakeEngine) SetMuted(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, muted)
	return nil
}

func (f *fakeEngine) SetVideoVisible(visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visible = append(f.visible, visible)
	return nil
}

func (f *fakeEngine) Position() mo.Option[time.Duration] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *fakeEngine) Duration() mo.Option[time.Duration] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeEngine) BufferingProgress() mo.Option[float64] {
	return mo.None[float64]()
}

func (f *fakeEngine) CanSeek() mo.Option[bool] {
	return mo.Some(true)
}

func (f *fakeEngine) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeEngine) Events() <-chan EngineEvent {
	return f.events
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeEngine) setPosition(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = mo.Some(pos)
}

func (f *fakeEngine) setDuration(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = mo.Some(d)
}

func (f *fakeEngine) setState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeEngine) seekTargets() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.seeks...)
}

// fakeControl is a scriptable PlaybackControl. applyResults scripts the
// outcome of successive ApplyPendingResume calls; a true result also clears
// the pending flag, mirroring the real controller.
type fakeControl struct {
	mu sync.Mutex

	offset  time.Duration
	target  time.Duration
	pending bool

	applyResults []bool
	applyCalls   int
	cancels      int
}

func (f *fakeControl) ManifestOffset() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offset
}

func (f *fakeControl) ApplyPendingResume(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.pending {
		return true, nil
	}

	var ok bool
	if f.applyCalls < len(f.applyResults) {
		ok = f.applyResults[f.applyCalls]
	}
	f.applyCalls++

	if ok {
		f.pending = false
	}
	return ok, nil
}

func (f *fakeControl) CancelPendingResume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = false
	f.cancels++
}

func (f *fakeControl) ResumeInProgress() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeControl) PendingResumeTarget() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.pending {
		return 0
	}
	return f.target
}

func (f *fakeControl) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

// captureReporter records the contexts its reports were issued with.
type captureReporter struct {
	mu       sync.Mutex
	starts   int
	progress []context.Context
}

func (r *captureReporter) Start(ctx context.Context, src *media.StreamSource, pos media.Ticks) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	return nil
}

func (r *captureReporter) Progress(ctx context.Context, src *media.StreamSource, pos media.Ticks, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ctx)
	return nil
}

func (r *captureReporter) Stop(ctx context.Context, src *media.StreamSource, pos media.Ticks) error {
	return nil
}

// waitProgress polls until at least one progress report arrived.
func (r *captureReporter) waitProgress() bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.progress)
		r.mu.Unlock()
		if n > 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func (r *captureReporter) lastProgressCtx() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return nil
	}
	return r.progress[len(r.progress)-1]
}
