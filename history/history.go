// Package history provides the implementation for tracking and persisting
// local playback positions.
package history

import (
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/filesystem"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/where"
	"github.com/metafates/gache"
	"github.com/spf13/viper"
)

// cacher provides an abstracted, disk-backed registry for playback progress records.
var cacher = gache.New[map[string]*SavedItem](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns the complete collection of playback records from the persistent store.
func Get() (map[string]*SavedItem, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*SavedItem), nil
	}
	return cached, nil
}

// Lookup returns the saved record for an item, if any.
func Lookup(itemID string) (*SavedItem, bool, error) {
	saved, err := Get()
	if err != nil {
		return nil, false, err
	}
	record, ok := saved[itemID]
	return record, ok, nil
}

// Save persists the reconciled playback position of an item.
func Save(item *media.Item, pos media.Ticks, percentage float64) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	record := newSavedItem(item)

	// The watched percentage only moves forward so a partial re-watch never
	// regresses a completed item; the position always tracks the latest
	// playback so resume lands where the viewer actually left off.
	if existing, exists := saved[item.ID]; exists {
		if percentage < existing.WatchedPercentage {
			percentage = existing.WatchedPercentage
		}
	}

	// An item past the completion threshold restarts from the beginning.
	if percentage >= float64(viper.GetInt(key.PlayerCompletionPercentage)) {
		pos = 0
	}

	record.PositionTicks = pos
	record.WatchedPercentage = percentage
	record.UpdatedAt = time.Now().Unix()

	saved[item.ID] = record

	return cacher.Set(saved)
}

// Remove permanently deletes a specific playback record.
func Remove(itemID string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, itemID)
	return cacher.Set(saved)
}

// Store adapts the package to the controller's recorder contract.
type Store struct{}

// Record implements playback.HistoryRecorder.
func (Store) Record(item *media.Item, pos media.Ticks, percentage float64) error {
	return Save(item, pos, percentage)
}
