package playback

import (
	"context"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/samber/mo"
)

// Engine encapsulates the platform media engine driving the actual decode and
// render pipeline. The property getters return optionals because some engine
// properties throw transiently during adaptive-stream transitions; a missing
// value is normal and never an error.
type Engine interface {
	// Load opens the given stream source. Playback starts once the engine
	// reports media-opened through Events.
	Load(src *media.StreamSource) error

	// Play resumes or starts playback.
	Play() error

	// Pause suspends playback.
	Pause() error

	// SeekTo moves to an absolute position on the engine's own timeline.
	SeekTo(pos time.Duration) error

	// SetMuted controls audio output. Used by the anti-spoiler resume flow.
	SetMuted(muted bool) error

	// SetVideoVisible controls video output. Used by the anti-spoiler resume flow.
	SetVideoVisible(visible bool) error

	// Position is the engine's current zero-based playback position.
	Position() mo.Option[time.Duration]

	// Duration is the engine-reported natural duration of the loaded media.
	// On adaptive streams this reflects the current manifest, not the item.
	Duration() mo.Option[time.Duration]

	// BufferingProgress reports buffer fill in percent when the engine exposes it.
	BufferingProgress() mo.Option[float64]

	// CanSeek reports whether the engine accepts seeks right now.
	CanSeek() mo.Option[bool]

	// State is the engine's current playback state.
	State() State

	// Events delivers engine callbacks. The channel closes when the engine
	// shuts down.
	Events() <-chan EngineEvent

	// Close tears the engine down and releases its resources.
	Close() error
}

// EngineEventKind enumerates the engine callbacks the orchestrator reacts to.
type EngineEventKind int

const (
	// EventStateChanged fires on every playback state transition.
	EventStateChanged EngineEventKind = iota

	// EventMediaOpened fires once the media is loaded and properties are readable.
	EventMediaOpened

	// EventSeekCompleted fires when a seek finishes, carrying the raw position
	// the engine landed on.
	EventSeekCompleted

	// EventMediaEnded fires when the engine reaches end of media. A corrupted
	// manifest after resume also surfaces this way.
	EventMediaEnded

	// EventMediaFailed fires on a terminal engine error.
	EventMediaFailed
)

// EngineEvent is one engine callback, delivered on an arbitrary goroutine and
// marshalled by the orchestrator onto its dispatch goroutine.
type EngineEvent struct {
	Kind     EngineEventKind
	State    State
	Position time.Duration
	Err      error
}

// PlaybackControl is the playback-control collaborator: it owns the queued
// resume position carried in the playback parameters and knows the offset at
// which the server started the current manifest.
type PlaybackControl interface {
	// ManifestOffset is the absolute position at which the server began the
	// current manifest; zero-based engine positions are relative to it.
	ManifestOffset() time.Duration

	// ApplyPendingResume attempts to seek to the queued resume position.
	// It returns false when the attempt should be retried.
	ApplyPendingResume(ctx context.Context) (bool, error)

	// CancelPendingResume discards the queued resume position. It is
	// synchronous so an in-flight retry can never re-apply a stale target.
	CancelPendingResume()

	// ResumeInProgress reports whether a resume position is still queued.
	ResumeInProgress() bool

	// PendingResumeTarget is the queued absolute resume position, zero if none.
	PendingResumeTarget() time.Duration
}
