package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/spf13/viper"
)

// ProgressReporter posts playback progress for a session back to the server.
type ProgressReporter interface {
	Start(ctx context.Context, src *media.StreamSource, pos media.Ticks) error
	Progress(ctx context.Context, src *media.StreamSource, pos media.Ticks, paused bool) error
	Stop(ctx context.Context, src *media.StreamSource, pos media.Ticks) error
}

// HistoryRecorder persists the local resume position for an item.
type HistoryRecorder interface {
	Record(item *media.Item, pos media.Ticks, percentage float64) error
}

// SegmentSkipper resolves skip windows and automatic skip targets from the
// display position.
type SegmentSkipper interface {
	SkipTarget(item *media.Item, pos time.Duration) (time.Duration, bool)
	InWindow(item *media.Item, pos time.Duration) bool
}

// Controller is the playback facade the command layer talks to. It wires the
// orchestrator to the engine, owns the queued resume position, and fans the
// reconciled position out to progress reporting, history and segment
// skipping. All of its methods are safe from any goroutine.
type Controller struct {
	engine Engine
	orch   *Orchestrator

	reporter ProgressReporter
	history  HistoryRecorder
	skipper  SegmentSkipper

	reportInterval time.Duration

	mu            sync.Mutex
	src           *media.StreamSource
	resumeTarget  time.Duration
	resumePending bool
	lastReport    time.Time
	lastSkip      time.Time
	skipAvailable bool
	itemCtx       context.Context
	itemCancel    context.CancelFunc

	playing   atomic.Bool
	paused    atomic.Bool
	buffering atomic.Bool
	display   atomic.Int64 // ticks

	runCtx context.Context

	// Observables, assigned before Start.
	OnPosition   func(PositionUpdate)
	OnMediaEnded func()
	OnError      func(error)
	NavigateBack func()

	// OnSkipAvailable fires when the position enters or leaves a skippable
	// segment window, so the UI can show or hide its skip button.
	OnSkipAvailable func(available bool)

	// OnControlsToggle fires when playback was toggled, asking the UI to
	// reveal its transport controls.
	OnControlsToggle func()
}

// ControllerOption customizes an optional collaborator.
type ControllerOption func(*Controller)

// WithReporter wires server progress reporting.
func WithReporter(r ProgressReporter) ControllerOption {
	return func(c *Controller) { c.reporter = r }
}

// WithHistory wires local resume-position persistence.
func WithHistory(h HistoryRecorder) ControllerOption {
	return func(c *Controller) { c.history = h }
}

// WithSkipper wires automatic intro/outro skipping.
func WithSkipper(s SegmentSkipper) ControllerOption {
	return func(c *Controller) { c.skipper = s }
}

// NewController assembles the facade around the given engine.
func NewController(engine Engine, t Tunables, opts ...ControllerOption) *Controller {
	c := &Controller{
		engine:         engine,
		reportInterval: time.Duration(viper.GetInt(key.ReportingInterval)) * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.orch = NewOrchestrator(engine, c, t)
	c.orch.OnPosition = c.handlePosition
	c.orch.OnStateChanged = c.handleStateChanged
	c.orch.OnMediaEnded = c.handleMediaEnded
	c.orch.OnError = func(err error) {
		if c.OnError != nil {
			c.OnError(err)
		}
	}
	return c
}

// Start launches the orchestrator. The controller runs until ctx is
// cancelled or Close is called.
func (c *Controller) Start(ctx context.Context) {
	c.runCtx = ctx
	c.orch.NavigateBack = func() {
		if c.NavigateBack != nil {
			c.NavigateBack()
		}
	}
	c.orch.Start(ctx)
}

// Close stops playback and releases the engine.
func (c *Controller) Close() error {
	c.Stop()
	c.orch.Close()
	return c.engine.Close()
}

// Play starts playback of src, queueing its saved resume position for the
// resume flow.
func (c *Controller) Play(src *media.StreamSource) error {
	if err := src.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.src = src
	c.resumeTarget = src.ResumeTarget()
	c.resumePending = c.resumeTarget > 0
	c.lastReport = time.Time{}
	c.skipAvailable = false
	ctx := c.rotateItemCtx()
	c.mu.Unlock()

	if err := c.orch.StartItem(src); err != nil {
		return err
	}

	if c.reporter != nil {
		go func() {
			if err := c.reporter.Start(ctx, src, src.ResumeTargetTicks); err != nil {
				log.Warnf("report playback start: %v", err)
			}
		}()
	}
	if c.history != nil && viper.GetBool(key.HistorySaveOnPlay) {
		if err := c.history.Record(src.Item, src.ResumeTargetTicks, 0); err != nil {
			log.Warnf("record history: %v", err)
		}
	}
	return nil
}

// rotateItemCtx cancels the previous item's background tasks and derives a
// fresh context for the next one. Caller holds c.mu.
func (c *Controller) rotateItemCtx() context.Context {
	if c.itemCancel != nil {
		c.itemCancel()
	}
	base := c.runCtx
	if base == nil {
		base = context.Background()
	}
	c.itemCtx, c.itemCancel = context.WithCancel(base)
	return c.itemCtx
}

// Stop ends playback, reporting the final reconciled position.
func (c *Controller) Stop() {
	c.mu.Lock()
	src := c.src
	c.src = nil
	c.resumePending = false
	// Cancel in-flight progress reports so none can land after the final
	// stop report and clobber the server's saved position.
	if c.itemCancel != nil {
		c.itemCancel()
		c.itemCancel = nil
	}
	c.mu.Unlock()

	if src == nil {
		return
	}

	pos := media.Ticks(c.display.Load())
	c.orch.Stop()

	if c.reporter != nil {
		if err := c.reporter.Stop(context.Background(), src, pos); err != nil {
			log.Warnf("report playback stop: %v", err)
		}
	}
	c.recordHistory(src.Item, pos)
}

// ChangeTrack switches to a different stream of the current item, carrying
// the display position across the reload.
func (c *Controller) ChangeTrack(src *media.StreamSource) error {
	if err := src.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.src = src
	// The track-change override carries the position; the saved resume
	// target no longer applies.
	c.resumePending = false
	c.rotateItemCtx()
	c.mu.Unlock()

	return c.orch.ChangeTrack(src)
}

// PlayPause toggles playback.
func (c *Controller) PlayPause() {
	if c.OnControlsToggle != nil {
		c.OnControlsToggle()
	}
	c.orch.PlayPause()
}

// SeekTo moves to an absolute display-timeline position.
func (c *Controller) SeekTo(pos time.Duration) { c.orch.SeekTo(pos) }

// SeekBy moves relative to the current display position.
func (c *Controller) SeekBy(delta time.Duration) { c.orch.SeekBy(delta) }

// IsPlaying reports whether the engine is actively playing.
func (c *Controller) IsPlaying() bool { return c.playing.Load() }

// IsPaused reports whether playback is paused.
func (c *Controller) IsPaused() bool { return c.paused.Load() }

// IsBuffering reports whether the engine is stalled on its buffer.
func (c *Controller) IsBuffering() bool { return c.buffering.Load() }

// Position returns the last published display position.
func (c *Controller) Position() time.Duration {
	return media.Ticks(c.display.Load()).Duration()
}

// ManifestOffset implements PlaybackControl.
func (c *Controller) ManifestOffset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src == nil {
		return 0
	}
	return c.src.StartOffset()
}

// ApplyPendingResume implements PlaybackControl. The engine may silently
// land at zero while the server is still regenerating the manifest, so a
// seek only counts once the position is observed near the target.
func (c *Controller) ApplyPendingResume(ctx context.Context) (bool, error) {
	c.mu.Lock()
	pending := c.resumePending
	target := c.resumeTarget
	offset := time.Duration(0)
	if c.src != nil {
		offset = c.src.StartOffset()
	}
	c.mu.Unlock()

	if !pending {
		return true, nil
	}

	raw := target - offset
	if raw < 0 {
		raw = 0
	}
	if err := c.engine.SeekTo(raw); err != nil {
		return false, err
	}

	// Give the seek a beat to land before judging it.
	if !sleepCtx(ctx, 250*time.Millisecond) {
		return false, ctx.Err()
	}
	pos, ok := c.engine.Position().Get()
	if !ok {
		return false, nil
	}
	const tolerance = 5 * time.Second
	if pos < raw-tolerance || pos > raw+tolerance {
		return false, nil
	}

	c.mu.Lock()
	c.resumePending = false
	c.mu.Unlock()
	return true, nil
}

// CancelPendingResume implements PlaybackControl.
func (c *Controller) CancelPendingResume() {
	c.mu.Lock()
	c.resumePending = false
	c.mu.Unlock()
}

// ResumeInProgress implements PlaybackControl.
func (c *Controller) ResumeInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resumePending
}

// PendingResumeTarget implements PlaybackControl.
func (c *Controller) PendingResumeTarget() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resumePending {
		return 0
	}
	return c.resumeTarget
}

func (c *Controller) handlePosition(u PositionUpdate) {
	c.display.Store(int64(media.DurationToTicks(u.Display)))

	c.maybeReport(u)
	c.announceSkipWindow(u)
	c.maybeSkip(u)

	if c.OnPosition != nil {
		c.OnPosition(u)
	}
}

// maybeReport posts a throttled progress update. Reporting is skipped while
// seeks are in flight so the server never persists a stale position.
func (c *Controller) maybeReport(u PositionUpdate) {
	if c.reporter == nil || u.SeeksPending || !viper.GetBool(key.ReportingEnable) {
		return
	}

	c.mu.Lock()
	src := c.src
	ctx := c.itemCtx
	due := time.Since(c.lastReport) >= c.reportInterval
	if due {
		c.lastReport = time.Now()
	}
	c.mu.Unlock()

	if src == nil || ctx == nil || !due {
		return
	}

	pos := media.DurationToTicks(u.Display)
	paused := u.State == StatePaused
	go func() {
		if err := c.reporter.Progress(ctx, src, pos, paused); err != nil {
			log.Debugf("report progress: %v", err)
		}
	}()
}

// announceSkipWindow raises OnSkipAvailable on window edges.
func (c *Controller) announceSkipWindow(u PositionUpdate) {
	if c.skipper == nil || c.OnSkipAvailable == nil {
		return
	}

	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	if src == nil {
		return
	}

	available := c.skipper.InWindow(src.Item, u.Display)

	c.mu.Lock()
	changed := available != c.skipAvailable
	c.skipAvailable = available
	c.mu.Unlock()

	if changed {
		c.OnSkipAvailable(available)
	}
}

// maybeSkip triggers at most one automatic skip per window entry.
func (c *Controller) maybeSkip(u PositionUpdate) {
	if c.skipper == nil || u.State != StatePlaying || u.SeeksPending {
		return
	}

	c.mu.Lock()
	src := c.src
	cooled := time.Since(c.lastSkip) >= 5*time.Second
	c.mu.Unlock()
	if src == nil || !cooled {
		return
	}

	target, ok := c.skipper.SkipTarget(src.Item, u.Display)
	if !ok {
		return
	}

	c.mu.Lock()
	c.lastSkip = time.Now()
	c.mu.Unlock()

	log.Infof("auto-skipping segment to %s", target)
	c.SeekTo(target)
}

func (c *Controller) handleStateChanged(s State) {
	c.playing.Store(s == StatePlaying)
	c.paused.Store(s == StatePaused)
	c.buffering.Store(s == StateBuffering)
}

func (c *Controller) handleMediaEnded() {
	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	if src != nil {
		c.recordHistory(src.Item, src.Item.RuntimeTicks)
	}
	if c.OnMediaEnded != nil {
		c.OnMediaEnded()
	}
}

func (c *Controller) recordHistory(item *media.Item, pos media.Ticks) {
	if c.history == nil || item == nil {
		return
	}
	pct := 0.0
	if item.RuntimeTicks > 0 {
		pct = float64(pos) / float64(item.RuntimeTicks) * 100
	}
	if err := c.history.Record(item, pos, pct); err != nil {
		log.Warnf("record history: %v", err)
	}
}
