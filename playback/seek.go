package playback

import (
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/samber/mo"
)

// SeekCompletionInput is one engine seek-completed callback plus the context
// the coordinator needs to interpret it.
type SeekCompletionInput struct {
	// RawPosition is the zero-based position the engine landed on.
	RawPosition time.Duration

	// EngineState is the playback state at callback time.
	EngineState State

	// NaturalDuration is the engine-reported duration of the loaded media,
	// absent when the property was unreadable.
	NaturalDuration mo.Option[time.Duration]

	// MetadataDuration is the authoritative item runtime from the server.
	MetadataDuration time.Duration

	// Adaptive is the stream kind.
	Adaptive bool

	// InitialSeekUnconfirmed is true while the first resume/seek of the
	// session has not been confirmed yet.
	InitialSeekUnconfirmed bool

	Now time.Time
}

// SeekCompletionOutcome tells the orchestrator what the callback meant.
type SeekCompletionOutcome struct {
	// CorruptionDetected means the manifest looks truncated after the initial
	// resume. No structural repair is attempted: the engine's own end-of-media
	// signal surfaces the condition.
	CorruptionDetected bool

	// NudgePlay asks for a delayed play command, used when corruption was
	// detected while paused.
	NudgePlay bool

	// OffsetCorrected means a regenerated manifest was recognized and the
	// session's manifest offset has been installed.
	OffsetCorrected bool

	// CorrectiveSeek, when present, is the raw position the engine should be
	// moved to after an offset correction.
	CorrectiveSeek mo.Option[time.Duration]
}

// SeekCompletionCoordinator interprets engine seek-completed callbacks.
//
// Two server-side quirks show up here. A manifest can come back truncated
// after a resume (corruption), and a large seek can make the server emit a
// brand-new manifest whose position counter restarts at zero (regeneration).
// The coordinator tells the two apart with the engine-reported natural
// duration, the recorded seek expectation, and the pending-seek bookkeeping.
//
// It is one of only two components allowed to mutate SessionState, the other
// being the orchestrator itself.
type SeekCompletionCoordinator struct {
	// staleSeekAfter is how long after the last seek a completion callback is
	// still matched to it even when the pending count says seeks are in flight.
	staleSeekAfter time.Duration

	// corruptionGap is the minimum absolute shortfall between metadata and
	// natural duration before a truncated manifest is flagged.
	corruptionGap time.Duration
}

// NewSeekCompletionCoordinator builds a coordinator with the default
// detection thresholds.
func NewSeekCompletionCoordinator() *SeekCompletionCoordinator {
	return &SeekCompletionCoordinator{
		staleSeekAfter: 2 * time.Second,
		corruptionGap:  10 * time.Second,
	}
}

// HandleSeekCompleted consumes one seek-completed callback, applying any
// manifest-offset correction directly to st.
func (c *SeekCompletionCoordinator) HandleSeekCompleted(st *SessionState, in SeekCompletionInput) SeekCompletionOutcome {
	var out SeekCompletionOutcome

	natural, hasNatural := in.NaturalDuration.Get()
	if !hasNatural || in.MetadataDuration <= 0 {
		return out
	}

	// Corruption: the manifest is far shorter than the item while the initial
	// resume is still unconfirmed. Left to surface through end-of-media.
	if in.InitialSeekUnconfirmed &&
		natural < in.MetadataDuration/2 &&
		in.MetadataDuration-natural > c.corruptionGap {
		out.CorruptionDetected = true
		if in.EngineState == StatePaused {
			out.NudgePlay = true
		}
		log.Warnf("manifest looks corrupted after resume: natural %s vs metadata %s",
			natural, in.MetadataDuration)
	}

	// Regeneration: a recorded large seek plus a manifest shorter than the
	// item means the server restarted the timeline at the seek target.
	if natural < in.MetadataDuration && st.ExpectedSeekTarget() > 0 {
		seeksDrained := st.PendingSeekCount() == 0
		seekStale := !st.LastSeekTime().IsZero() && in.Now.Sub(st.LastSeekTime()) > c.staleSeekAfter

		if !seeksDrained && !seekStale {
			// A manifest swap may still be in progress; correcting now would
			// race it. Skip this cycle, the next callback re-evaluates.
			return out
		}

		offset := st.ExpectedSeekTarget()
		st.ApplyManifestOffset(offset)
		out.OffsetCorrected = true
		out.CorrectiveSeek = mo.Some(time.Duration(0))
		log.Infof("manifest regenerated, installed offset %s", offset)
	}

	return out
}
