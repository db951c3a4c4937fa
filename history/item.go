package history

import (
	"fmt"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/util"
)

// SavedItem represents a single playback entry preserved in the local watch
// history.
type SavedItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	SeriesID string `json:"series_id,omitempty"`
	Type     string `json:"type,omitempty"`

	RuntimeTicks media.Ticks `json:"runtime_ticks"`

	// PositionTicks is the last reconciled display position and therefore
	// the resume target for the next playback of this item.
	PositionTicks media.Ticks `json:"position_ticks"`

	WatchedPercentage float64 `json:"watched_percentage"`
	UpdatedAt         int64   `json:"updated_at"`
}

func (s *SavedItem) String() string {
	return fmt.Sprintf("%s : %s / %s",
		s.Name,
		util.FormatDuration(s.PositionTicks.Duration()),
		util.FormatDuration(s.RuntimeTicks.Duration()),
	)
}

// ResumeTarget returns the saved position as a duration.
func (s *SavedItem) ResumeTarget() time.Duration {
	return s.PositionTicks.Duration()
}

func newSavedItem(item *media.Item) *SavedItem {
	return &SavedItem{
		ID:           item.ID,
		Name:         item.Name,
		SeriesID:     item.SeriesID,
		Type:         item.Type,
		RuntimeTicks: item.RuntimeTicks,
	}
}
