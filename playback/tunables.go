package playback

import (
	"time"

	"github.com/gitman-101111/gelatinarm-sub002/key"
	"github.com/spf13/viper"
)

// Tunables collects every timing knob of the reconciliation machinery so the
// coordinators never read global configuration themselves.
type Tunables struct {
	// BufferingTimeout is how long a buffering episode may last before
	// recovery or failure.
	BufferingTimeout time.Duration

	// RecoveryExtension is added to the buffering deadline after the one
	// recovery attempt.
	RecoveryExtension time.Duration

	// RecoveryPause is how long the pause is held during a recovery cycle.
	RecoveryPause time.Duration

	// StabilizationDelay gives the server time to finish regenerating its
	// manifest at the resume target before the seek is applied.
	StabilizationDelay time.Duration

	// SettleDelay is the wait after a successful resume before audio and
	// video are restored.
	SettleDelay time.Duration

	// NavigateBackDelay is the grace period before automatic back-navigation
	// after a terminal playback failure.
	NavigateBackDelay time.Duration

	// AdaptiveRetry and DirectRetry are the per-stream-kind resume budgets.
	AdaptiveRetry RetryBudget
	DirectRetry   RetryBudget
}

// TunablesFromConfig loads the knobs from global configuration.
func TunablesFromConfig() Tunables {
	return Tunables{
		BufferingTimeout:   time.Duration(viper.GetInt(key.PlaybackBufferingTimeout)) * time.Second,
		RecoveryExtension:  time.Duration(viper.GetInt(key.PlaybackRecoveryExtension)) * time.Second,
		RecoveryPause:      time.Duration(viper.GetInt(key.PlaybackRecoveryPause)) * time.Millisecond,
		StabilizationDelay: time.Duration(viper.GetInt(key.PlaybackStabilizationDelay)) * time.Second,
		SettleDelay:        time.Duration(viper.GetInt(key.PlaybackSettleDelay)) * time.Millisecond,
		NavigateBackDelay:  time.Duration(viper.GetInt(key.PlaybackNavigateBackDelay)) * time.Second,
		AdaptiveRetry: RetryBudget{
			Attempts: viper.GetInt(key.PlaybackResumeAttemptsHLS),
			Delay:    time.Duration(viper.GetInt(key.PlaybackResumeDelayHLS)) * time.Millisecond,
		},
		DirectRetry: RetryBudget{
			Attempts: viper.GetInt(key.PlaybackResumeAttemptsDirect),
			Delay:    time.Duration(viper.GetInt(key.PlaybackResumeDelayDirect)) * time.Millisecond,
		},
	}
}
