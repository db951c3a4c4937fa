// Package playback implements the position reconciliation and resume state
// machine that sits between the media engine and everything that needs one
// continuous timeline: the UI surface, progress reporting, and skip segments.
//
// Adaptive (HLS-style) streams complicate this: seeking or switching tracks
// can make the server emit a fresh manifest whose internal position counter
// restarts at zero. The orchestrator reconciles the engine's zero-based
// positions against the original media timeline so callers never see the
// reset.
package playback

// State is the engine playback state as seen by the orchestrator.
type State int

const (
	StateNone State = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "none"
	}
}
