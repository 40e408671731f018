package provider

import (
	"strings"
	"time"

	"health-sync/core/retry"
)

// Settings is the per-provider configuration block. Providers use different
// subsets: a personal access token, an OAuth client pair, a user id, or a
// plain login. Unused fields stay empty.
type Settings struct {
	// AccessToken is a bearer token for providers with static tokens.
	AccessToken string `mapstructure:"access_token"`
	// ClientID and ClientSecret identify an OAuth application.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	// UserID scopes requests for providers with explicit user paths.
	UserID string `mapstructure:"user_id"`
	// Email and Password for providers with session-token login.
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	// BaseURL overrides the provider's production endpoint, used in tests.
	BaseURL string `mapstructure:"base_url"`
	// DayBoundary overrides the provider's default window offset, as a
	// "15:04" wall-clock string.
	DayBoundary string `mapstructure:"day_boundary"`
}

// Config holds everything the provider layer needs.
type Config struct {
	// StateDir is where the file token store keeps saved credentials.
	StateDir string `mapstructure:"state_dir" default:"./state"`
	// TimeoutSeconds bounds each HTTP request phase.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// MaxAttempts, BaseDelaySeconds and MaxDelaySeconds tune the retry
	// schedule shared by all providers. Zero means the retry defaults.
	MaxAttempts      int `mapstructure:"max_attempts"`
	BaseDelaySeconds int `mapstructure:"base_delay_seconds"`
	MaxDelaySeconds  int `mapstructure:"max_delay_seconds"`

	Oura     Settings `mapstructure:"oura"`
	Polar    Settings `mapstructure:"polar"`
	Garmin   Settings `mapstructure:"garmin"`
	Withings Settings `mapstructure:"withings"`
	Rolla    Settings `mapstructure:"rolla"`
}

// For returns the settings block for a provider name.
func (c Config) For(name string) (Settings, bool) {
	switch strings.ToLower(name) {
	case "oura":
		return c.Oura, true
	case "polar":
		return c.Polar, true
	case "garmin":
		return c.Garmin, true
	case "withings":
		return c.Withings, true
	case "rolla":
		return c.Rolla, true
	}
	return Settings{}, false
}

// RetryOptions translates the config knobs into a retry schedule.
func (c Config) RetryOptions() retry.Options {
	opts := retry.Options{MaxAttempts: c.MaxAttempts}
	if c.BaseDelaySeconds > 0 {
		opts.BaseDelay = time.Duration(c.BaseDelaySeconds) * time.Second
	}
	if c.MaxDelaySeconds > 0 {
		opts.MaxDelay = time.Duration(c.MaxDelaySeconds) * time.Second
	}
	return opts
}
