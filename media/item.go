package media

import (
	"fmt"
	"time"
)

// StreamKind distinguishes how the server delivers an item.
type StreamKind int

const (
	// DirectPlay streams the original file on one continuous timeline.
	DirectPlay StreamKind = iota

	// Adaptive is an HLS-style transcode. Seeking or switching tracks can make
	// the server issue a new manifest whose position counter restarts at zero.
	Adaptive
)

func (k StreamKind) String() string {
	if k == Adaptive {
		return "adaptive"
	}
	return "direct"
}

// Item is the authoritative metadata for a playable media entry.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SeriesID string `json:"series_id,omitempty"`
	Type     string `json:"type,omitempty"`

	// RuntimeTicks is the server-reported total runtime. The engine's own
	// duration reading is not trusted on adaptive streams.
	RuntimeTicks Ticks `json:"runtime_ticks"`
}

// Runtime returns the authoritative metadata duration.
func (i *Item) Runtime() time.Duration {
	return i.RuntimeTicks.Duration()
}

func (i *Item) String() string {
	return i.Name
}

// StreamSource describes one playable stream of an item as issued by the server.
type StreamSource struct {
	Item *Item

	// URL is the manifest or file location handed to the engine.
	URL string

	// Kind selects the resume/retry budgets and the manifest reconciliation path.
	Kind StreamKind

	// PlaySessionID identifies this playback session for progress reporting.
	PlaySessionID string

	// ResumeTargetTicks is the saved position playback should start from.
	// Zero means start from the beginning.
	ResumeTargetTicks Ticks

	// StartOffsetTicks is the absolute position at which the server began
	// this manifest. Engine positions are relative to it, so the display
	// timeline adds it back.
	StartOffsetTicks Ticks

	// Headers are sent by the engine with every segment request.
	Headers map[string]string
}

// ResumeTarget returns the saved resume position as a duration.
func (s *StreamSource) ResumeTarget() time.Duration {
	return s.ResumeTargetTicks.Duration()
}

// StartOffset returns the manifest's absolute starting position.
func (s *StreamSource) StartOffset() time.Duration {
	return s.StartOffsetTicks.Duration()
}

// Validate reports whether the source carries enough information to play.
func (s *StreamSource) Validate() error {
	if s.Item == nil {
		return fmt.Errorf("stream source: missing item")
	}
	if s.URL == "" {
		return fmt.Errorf("stream source %q: missing url", s.Item.ID)
	}
	return nil
}
