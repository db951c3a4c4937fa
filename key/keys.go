// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Media Playback Engine - these keys maintain the configuration for the external video player.
const (
	Player                     = "player.default"
	PlayerCompletionPercentage = "player.completion_percentage"
)

// Playback Reconciliation - these keys tune the position reconciliation and resume state machine.
const (
	PlaybackBufferingTimeout     = "playback.buffering_timeout"
	PlaybackRecoveryExtension    = "playback.recovery_extension"
	PlaybackRecoveryPause        = "playback.recovery_pause"
	PlaybackStabilizationDelay   = "playback.stabilization_delay"
	PlaybackSettleDelay          = "playback.settle_delay"
	PlaybackResumeAttemptsHLS    = "playback.resume_attempts_hls"
	PlaybackResumeDelayHLS       = "playback.resume_delay_hls"
	PlaybackResumeAttemptsDirect = "playback.resume_attempts_direct"
	PlaybackResumeDelayDirect    = "playback.resume_delay_direct"
	PlaybackNavigateBackDelay    = "playback.navigate_back_delay"
)

// Media Server - these keys hold the connection parameters for the backing server.
const (
	ServerURL      = "server.url"
	ServerToken    = "server.token"
	ServerDeviceID = "server.device_id"
)

// Session Reporting - these keys govern progress reporting back to the media server.
const (
	ReportingEnable   = "reporting.enable"
	ReportingInterval = "reporting.interval"
)

// Skip Segments - these keys manage intro/outro segment retrieval and automatic skipping.
const (
	SkipSegments  = "skip.segments"
	SkipAutoIntro = "skip.auto_intro"
	SkipAutoOutro = "skip.auto_outro"
)

// History Tracking - these keys configure the persistence of local resume positions.
const (
	HistorySaveOnPlay = "history.save_on_play"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-interactive application behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
	IconsVariant    = "icons.variant"
)
