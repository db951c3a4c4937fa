package skipsegment

import (
	"sync"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/spf13/viper"
)

// Skipper resolves automatic skip targets from the reconciled display
// position. Windows are fetched lazily per item and each window is skipped
// at most once so the viewer can still seek back into it deliberately.
type Skipper struct {
	mu           sync.Mutex
	itemID       string
	windows      *Windows
	skippedIntro bool
	skippedOutro bool
}

// NewSkipper creates an empty skipper; windows are fetched on first use.
func NewSkipper() *Skipper {
	return &Skipper{}
}

// SkipTarget reports where playback should jump when pos is inside an
// auto-skippable window. Positions come from the display timeline, which the
// segment windows are defined on.
func (s *Skipper) SkipTarget(item *media.Item, pos time.Duration) (time.Duration, bool) {
	if item == nil || !viper.GetBool(key.SkipSegments) {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemID != item.ID {
		s.load(item.ID)
	}
	if s.windows == nil {
		return 0, false
	}

	if viper.GetBool(key.SkipAutoIntro) && !s.skippedIntro &&
		s.windows.HasIntro && s.windows.Intro.Contains(pos) {
		s.skippedIntro = true
		return s.windows.Intro.End, true
	}

	if viper.GetBool(key.SkipAutoOutro) && !s.skippedOutro &&
		s.windows.HasOutro && s.windows.Outro.Contains(pos) {
		s.skippedOutro = true
		return s.windows.Outro.End, true
	}

	return 0, false
}

// InWindow reports whether pos falls inside any skippable window of the
// item, independent of the auto-skip settings. Drives the manual
// skip-button availability.
func (s *Skipper) InWindow(item *media.Item, pos time.Duration) bool {
	if item == nil || !viper.GetBool(key.SkipSegments) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemID != item.ID {
		s.load(item.ID)
	}
	if s.windows == nil {
		return false
	}

	return (s.windows.HasIntro && s.windows.Intro.Contains(pos)) ||
		(s.windows.HasOutro && s.windows.Outro.Contains(pos))
}

// Windows returns the fetched windows for the current item, fetching them
// when needed. Used by the UI to offer a manual skip button.
func (s *Skipper) Windows(item *media.Item) *Windows {
	if item == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.itemID != item.ID {
		s.load(item.ID)
	}
	return s.windows
}

// load runs with the lock held.
func (s *Skipper) load(itemID string) {
	s.itemID = itemID
	s.skippedIntro = false
	s.skippedOutro = false
	s.windows = nil

	windows, err := GetWindows(itemID)
	if err != nil {
		log.Warnf("fetch skip windows for %s: %v", itemID, err)
		return
	}
	s.windows = windows
}
