// Package skipsegment provides a client for the media server's segment API,
// enabling automated retrieval of intro and outro skip windows.
package skipsegment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/auth"
	"github.com/gitman-101111/gelatinarm-sub002/internal/cache"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/log"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/network"
	"github.com/spf13/viper"
)

// Windows encapsulates the temporal intervals for intro and outro sequences
// of one item.
type Windows struct {
	Intro    Interval `json:"intro"`
	Outro    Interval `json:"outro"`
	HasIntro bool     `json:"has_intro"`
	HasOutro bool     `json:"has_outro"`
}

// Interval represents a continuous range on the display timeline.
type Interval struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
}

// Contains reports whether pos falls inside the interval.
func (i Interval) Contains(pos time.Duration) bool {
	return pos >= i.Start && pos < i.End
}

// apiResponse maps the server's segment listing.
type apiResponse struct {
	Items []struct {
		Type       string      `json:"Type"`
		StartTicks media.Ticks `json:"StartTicks"`
		EndTicks   media.Ticks `json:"EndTicks"`
	} `json:"Items"`
}

// GetWindows retrieves the skip windows for an item from the media server.
// Results are cached on disk; lookups degrade gracefully, returning nil (not
// an error) when the server has no data or cannot be reached.
func GetWindows(itemID string) (*Windows, error) {
	cacheKey := cache.GenerateKey(itemID, "segments")

	var cached Windows
	if cache.Read(cacheKey, &cached) {
		return &cached, nil
	}

	base := strings.TrimRight(viper.GetString(key.ServerURL), "/")
	if base == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/MediaSegments/%s?includeSegmentTypes=Intro&includeSegmentTypes=Outro", base, itemID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build segment request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf(`MediaBrowser Token="%s"`, auth.Token()))

	resp, err := network.Client.Do(req)
	if err != nil {
		log.Warnf("segment API request failed: %v", err)
		return nil, nil // graceful degradation
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("segment API returned status %d", resp.StatusCode)
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read segment response: %w", err)
	}

	var data apiResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("parse segment response: %w", err)
	}

	if len(data.Items) == 0 {
		return nil, nil
	}

	windows := &Windows{}
	for _, item := range data.Items {
		interval := Interval{
			Start: item.StartTicks.Duration(),
			End:   item.EndTicks.Duration(),
		}
		switch item.Type {
		case "Intro":
			windows.Intro = interval
			windows.HasIntro = true
		case "Outro":
			windows.Outro = interval
			windows.HasOutro = true
		}
	}

	if err := cache.Write(cacheKey, windows); err != nil {
		log.Debugf("cache segment windows: %v", err)
	}

	return windows, nil
}
