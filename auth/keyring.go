// Package auth provides a high-level API for persisting and retrieving the media server access token from the system keyring.
package auth

import (
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/key"
)

const (
	service = constant.Gelatinarm
	user    = "server-token"
)

// SetToken persists the media server access token to the system keyring.
func SetToken(token string) error {
	return keyring.Set(service, user, token)
}

// GetToken retrieves the media server access token from the system keyring.
func GetToken() (string, error) {
	return keyring.Get(service, user)
}

// DeleteToken removes the media server access token from the system keyring.
func DeleteToken() error {
	return keyring.Delete(service, user)
}

// Token resolves the access token used for server requests. An explicitly
// configured token takes precedence over the keyring so that scripted
// environments without a keyring daemon keep working.
func Token() string {
	if t := viper.GetString(key.ServerToken); t != "" {
		return t
	}

	t, err := GetToken()
	if err != nil {
		return ""
	}
	return t
}
