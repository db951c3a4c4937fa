// Package reporting posts playback session progress back to the media
// server, with an offline queue for reports that could not be delivered.
package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gitman-101111/gelatinarm-sub002/auth"
	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/media"
	"github.com/gitman-101111/gelatinarm-sub002/network"
	"github.com/spf13/viper"
)

// report is the wire payload for all three session endpoints.
type report struct {
	ItemID        string      `json:"ItemId"`
	PlaySessionID string      `json:"PlaySessionId"`
	PositionTicks media.Ticks `json:"PositionTicks"`
	IsPaused      bool        `json:"IsPaused,omitempty"`
}

// Reporter posts session lifecycle reports. The zero value is ready to use;
// it reads the server connection from global configuration per request so a
// reconfiguration applies without a restart.
type Reporter struct{}

// Start reports that playback of a session began at the given position.
func (Reporter) Start(ctx context.Context, src *media.StreamSource, pos media.Ticks) error {
	return post(ctx, "/Sessions/Playing", report{
		ItemID:        src.Item.ID,
		PlaySessionID: src.PlaySessionID,
		PositionTicks: pos,
	})
}

// Progress reports the current reconciled position of a session.
func (Reporter) Progress(ctx context.Context, src *media.StreamSource, pos media.Ticks, paused bool) error {
	return post(ctx, "/Sessions/Playing/Progress", report{
		ItemID:        src.Item.ID,
		PlaySessionID: src.PlaySessionID,
		PositionTicks: pos,
		IsPaused:      paused,
	})
}

// Stop reports that a session ended at the given position. Undeliverable
// stop reports are queued for later reconciliation: losing one means the
// server forgets where the viewer left off.
func (Reporter) Stop(ctx context.Context, src *media.StreamSource, pos media.Ticks) error {
	payload := report{
		ItemID:        src.Item.ID,
		PlaySessionID: src.PlaySessionID,
		PositionTicks: pos,
	}
	if err := post(ctx, "/Sessions/Playing/Stopped", payload); err != nil {
		if qErr := queueFailure("/Sessions/Playing/Stopped", payload); qErr != nil {
			return fmt.Errorf("%w (queue for retry also failed: %v)", err, qErr)
		}
		return err
	}
	return nil
}

func post(ctx context.Context, path string, payload report) error {
	base := strings.TrimRight(viper.GetString(key.ServerURL), "/")
	if base == "" {
		return fmt.Errorf("no media server configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Authorization", authHeader())

	resp, err := network.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("post report: server returned status %d", resp.StatusCode)
	}
	return nil
}

func authHeader() string {
	return fmt.Sprintf(`MediaBrowser Token="%s", Client="%s", Device="%s", Version="%s"`,
		auth.Token(),
		constant.Gelatinarm,
		viper.GetString(key.ServerDeviceID),
		constant.Version,
	)
}
