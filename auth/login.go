package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/viper"

	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/network"
)

type authenticateRequest struct {
	Username string `json:"Username"`
	Pw       string `json:"Pw"`
}

type authenticateResponse struct {
	AccessToken string `json:"AccessToken"`
	User        struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"User"`
}

// Login authenticates against the media server with a username and password
// and returns the access token the server issued for this device.
func Login(ctx context.Context, username, password string) (string, error) {
	base := strings.TrimRight(viper.GetString(key.ServerURL), "/")
	if base == "" {
		return "", fmt.Errorf("no server configured, set %s first", key.ServerURL)
	}

	payload, err := json.Marshal(authenticateRequest{Username: username, Pw: password})
	if err != nil {
		return "", fmt.Errorf("encode credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/Users/AuthenticateByName", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("Authorization", fmt.Sprintf(
		`MediaBrowser Client="%s", Device="%s", DeviceId="%s", Version="%s"`,
		constant.Gelatinarm,
		constant.Gelatinarm,
		viper.GetString(key.ServerDeviceID),
		constant.Version,
	))

	resp, err := network.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", fmt.Errorf("server rejected the credentials")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login request: server returned status %d", resp.StatusCode)
	}

	var parsed authenticateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("server returned an empty access token")
	}
	return parsed.AccessToken, nil
}
