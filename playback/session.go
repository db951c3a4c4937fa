package playback

import (
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/samber/mo"
)

// SessionState is the single source of truth for one playback session's
// position bookkeeping. It holds no I/O and performs no locking: the
// orchestrator's dispatch goroutine is the only writer, everything else is
// read-only over it.
//
// The display position invariant:
//
//	display = raw + externalOffset            if externalOffset > 0
//	display = raw + manifestOffset            if offsetApplied
//	display = raw                             otherwise
type SessionState struct {
	rawPosition time.Duration

	// manifestOffset corrects the engine's zero-based position after the
	// server regenerated its manifest mid-session.
	manifestOffset time.Duration
	offsetApplied  bool

	adaptive    bool
	trackChange bool

	// pendingTrackChangeSeek is a one-shot override consumed by the next
	// resume attempt after a track change.
	pendingTrackChangeSeek    media.Ticks
	hasPendingTrackChangeSeek bool

	pendingSeekCount   uint32
	expectedSeekTarget time.Duration
	lastSeekTime       time.Time
}

// NewSessionState returns a SessionState in its all-default state.
func NewSessionState() *SessionState {
	return &SessionState{}
}

// Reset returns every field to its zero value. Called on every new item load.
func (s *SessionState) Reset() {
	*s = SessionState{}
}

// DisplayPosition reconciles a raw engine position into the absolute timeline
// position. externalOffset is the offset at which the server started the
// current manifest (the playback-control collaborator's manifest offset).
func (s *SessionState) DisplayPosition(raw, externalOffset time.Duration) time.Duration {
	if externalOffset > 0 {
		return raw + externalOffset
	}
	if s.offsetApplied {
		return raw + s.manifestOffset
	}
	return raw
}

// SetRawPosition records the last position reported by the engine.
func (s *SessionState) SetRawPosition(pos time.Duration) {
	s.rawPosition = pos
}

// RawPosition is the last position reported by the engine.
func (s *SessionState) RawPosition() time.Duration {
	return s.rawPosition
}

// RecordLargeSeek notes a user seek big enough to make the server regenerate
// its manifest. The expected target is later matched by the seek-completion
// coordinator to reconstruct the absolute timeline.
func (s *SessionState) RecordLargeSeek(targetAbsolute time.Duration, now time.Time) {
	s.expectedSeekTarget = targetAbsolute
	s.lastSeekTime = now
	s.pendingSeekCount++
}

// DecrementPendingSeek consumes one pending seek. The count never goes
// negative regardless of call ordering.
func (s *SessionState) DecrementPendingSeek() {
	if s.pendingSeekCount > 0 {
		s.pendingSeekCount--
	}
}

// PendingSeekCount is the number of seeks still awaiting completion callbacks.
func (s *SessionState) PendingSeekCount() uint32 {
	return s.pendingSeekCount
}

// ExpectedSeekTarget is the absolute position the last large seek aimed for,
// zero once consumed.
func (s *SessionState) ExpectedSeekTarget() time.Duration {
	return s.expectedSeekTarget
}

// LastSeekTime is when the last large seek was issued.
func (s *SessionState) LastSeekTime() time.Time {
	return s.lastSeekTime
}

// ApplyManifestOffset installs the correction for a regenerated manifest and
// clears the seek expectation it was derived from.
func (s *SessionState) ApplyManifestOffset(offset time.Duration) {
	s.manifestOffset = offset
	s.offsetApplied = true
	s.expectedSeekTarget = 0
	s.pendingSeekCount = 0
}

// ManifestOffset is the currently installed manifest correction.
func (s *SessionState) ManifestOffset() time.Duration {
	return s.manifestOffset
}

// OffsetApplied reports whether a manifest correction is active.
func (s *SessionState) OffsetApplied() bool {
	return s.offsetApplied
}

// MarkAdaptive records the stream kind for the current session.
func (s *SessionState) MarkAdaptive(adaptive bool) {
	s.adaptive = adaptive
}

// IsAdaptive reports whether the current stream is an adaptive (HLS-style) one.
func (s *SessionState) IsAdaptive() bool {
	return s.adaptive
}

// MarkTrackChange records that the current load is a track change rather than
// a fresh item.
func (s *SessionState) MarkTrackChange(changing bool) {
	s.trackChange = changing
}

// IsTrackChange reports whether a track change is in progress.
func (s *SessionState) IsTrackChange() bool {
	return s.trackChange
}

// SetPendingTrackChangeSeek stores the position playback should return to
// once the new track is up.
func (s *SessionState) SetPendingTrackChangeSeek(target media.Ticks) {
	s.pendingTrackChangeSeek = target
	s.hasPendingTrackChangeSeek = true
}

// ConsumePendingTrackChangeSeek returns the post-track-change seek override
// and clears it. The override is strictly one-shot.
func (s *SessionState) ConsumePendingTrackChangeSeek() mo.Option[media.Ticks] {
	if !s.hasPendingTrackChangeSeek {
		return mo.None[media.Ticks]()
	}
	target := s.pendingTrackChangeSeek
	s.pendingTrackChangeSeek = 0
	s.hasPendingTrackChangeSeek = false
	return mo.Some(target)
}
