// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/gitman-101111/gelatinarm-sub002/color"
	"github.com/gitman-101111/gelatinarm-sub002/constant"
	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/gitman-101111/gelatinarm-sub002/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Gelatinarm + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.Player, "mpv", "Media player engine to use (currently only mpv)")
	register(key.PlayerCompletionPercentage, 90, "Percentage required to mark an item as watched (1-100)")

	register(key.PlaybackBufferingTimeout, 30, "Seconds a buffering episode may last before recovery or failure")
	register(key.PlaybackRecoveryExtension, 10, "Seconds added to the buffering deadline after a recovery attempt")
	register(key.PlaybackRecoveryPause, 500, "Milliseconds to hold the pause during a buffering recovery cycle")
	register(key.PlaybackStabilizationDelay, 3, "Seconds to wait for the server to regenerate its manifest before applying a resume position on adaptive streams")
	register(key.PlaybackSettleDelay, 500, "Milliseconds to wait after a successful resume before restoring audio and video")
	register(key.PlaybackResumeAttemptsHLS, 5, "Resume attempts budget for adaptive (HLS) streams.\nThe server has to restart a transcode, so this is generous")
	register(key.PlaybackResumeDelayHLS, 2000, "Milliseconds between resume attempts on adaptive streams")
	register(key.PlaybackResumeAttemptsDirect, 3, "Resume attempts budget for direct-play streams")
	register(key.PlaybackResumeDelayDirect, 500, "Milliseconds between resume attempts on direct-play streams")
	register(key.PlaybackNavigateBackDelay, 3, "Seconds before automatic back-navigation after a playback failure")

	register(key.ServerURL, "", "Base URL of the media server, e.g. https://media.example.com")
	register(key.ServerToken, "", "API token used to authenticate against the media server")
	register(key.ServerDeviceID, "", "Stable device identifier sent with every server request.\nGenerated on first run when empty")

	register(key.ReportingEnable, true, "Report playback progress to the media server")
	register(key.ReportingInterval, 1, "Seconds between progress reports")

	register(key.SkipSegments, true, "Fetch intro/outro segment windows for played items")
	register(key.SkipAutoIntro, false, "Skip intro segments automatically instead of offering a skip button")
	register(key.SkipAutoOutro, false, "Skip outro segments automatically instead of offering a skip button")

	register(key.HistorySaveOnPlay, true, "Persist the reconciled playback position to the local watch history")

	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")

	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
	register(key.IconsVariant, "emoji", "Icon variant used in CLI output.\nAvailable options are: emoji, nerd, plain, kaomoji, squares")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
