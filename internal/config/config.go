// Package config provides configuration loading and management for anchor sessions.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/spatial-anchors/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables read through viper
const EnvPrefix = "ANCHORS"

const (
	// DefaultRestoreDelay lets the tracking subsystem stabilise before persisted anchors are restored
	DefaultRestoreDelay = time.Second

	// DefaultRoomCaptureDelay is how long a session waits for planes before asking for a room capture
	DefaultRoomCaptureDelay = 5 * time.Second

	// DefaultFrameRate is the render cadence driven by the simulator, in frames per second
	DefaultFrameRate = 72

	// DefaultMaxRetries is the number of retries after the first failed asset load
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the first wait between asset load attempts
	DefaultInitialBackoff = 250 * time.Millisecond

	// DefaultMaxBackoff caps the wait between asset load attempts
	DefaultMaxBackoff = 4 * time.Second

	// DefaultBackoffMultiplier grows the wait between consecutive attempts
	DefaultBackoffMultiplier = 2.0

	// DefaultAssetTimeout bounds a single asset HTTP request
	DefaultAssetTimeout = 30 * time.Second

	// DefaultKeyringUser is the keyring entry used when none is configured
	DefaultKeyringUser = "default"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Session   SessionConfig     `yaml:"session"`
	Assets    AssetsConfig      `yaml:"assets"`
	Tracking  TrackingConfig    `yaml:"tracking"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SessionConfig controls session start behaviour and frame cadence
type SessionConfig struct {
	// RestoreDelay is the settling delay before persisted anchors are restored (e.g. "1s")
	RestoreDelay string `yaml:"restoreDelay,omitempty"`

	// RoomCaptureDelay is the delay before checking for detected planes (e.g. "5s")
	// An empty value uses the default; "0s" disables room capture.
	RoomCaptureDelay string `yaml:"roomCaptureDelay,omitempty"`

	// FrameRate is the number of frames per second
	FrameRate int `yaml:"frameRate,omitempty"`
}

// AssetsConfig configures credentialed asset resolution and retry behaviour
type AssetsConfig struct {
	// Endpoint is the base URL of the pre-signed URL API, e.g. "https://api.example.com/prod/"
	Endpoint string `yaml:"endpoint,omitempty"`

	// TokenFile is a file holding the ID token sent as Authorization header.
	// When empty the token is read from the system keyring.
	TokenFile string `yaml:"tokenFile,omitempty"`

	// KeyringUser selects the keyring entry holding the ID token
	KeyringUser string `yaml:"keyringUser,omitempty"`

	// MaxRetries is the number of retries after the first failed attempt
	MaxRetries *int `yaml:"maxRetries,omitempty"`

	// Timeout bounds a single HTTP request (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	Backoff *BackoffConfig `yaml:"backoff,omitempty"`
}

// BackoffConfig defines the exponential backoff between asset load attempts
type BackoffConfig struct {
	InitialInterval string  `yaml:"initialInterval,omitempty"`
	MaxInterval     string  `yaml:"maxInterval,omitempty"`
	Multiplier      float64 `yaml:"multiplier,omitempty"`
}

// TrackingConfig configures the simulated tracking subsystem
type TrackingConfig struct {
	// StorePath is the YAML file persistent anchors are stored in
	StorePath string `yaml:"storePath,omitempty"`

	// Latency is the simulated resolution time of tracking requests (e.g. "20ms")
	Latency string `yaml:"latency,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates YAML configuration content
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns a configuration with every value at its default
func Default() *Config {
	return &Config{}
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	var errs []error
	for name, value := range map[string]string{
		"session.restoreDelay":           c.Session.RestoreDelay,
		"session.roomCaptureDelay":       c.Session.RoomCaptureDelay,
		"assets.timeout":                 c.Assets.Timeout,
		"tracking.latency":               c.Tracking.Latency,
		"assets.backoff.initialInterval": c.Assets.Backoff.initialInterval(),
		"assets.backoff.maxInterval":     c.Assets.Backoff.maxInterval(),
	} {
		if err := validateDuration(name, value); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Session.FrameRate < 0 {
		errs = append(errs, fmt.Errorf("session.frameRate must not be negative, got %d", c.Session.FrameRate))
	}
	if c.Assets.MaxRetries != nil && *c.Assets.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("assets.maxRetries must not be negative, got %d", *c.Assets.MaxRetries))
	}
	if c.Assets.Backoff != nil && c.Assets.Backoff.Multiplier != 0 && c.Assets.Backoff.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("assets.backoff.multiplier must be at least 1, got %g", c.Assets.Backoff.Multiplier))
	}
	if c.Assets.Endpoint != "" {
		if u, err := url.Parse(c.Assets.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("assets.endpoint must be an absolute URL, got %q", c.Assets.Endpoint))
		}
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// validateDuration accepts an empty value or a parseable non-negative duration
func validateDuration(name, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a valid duration (e.g., '500ms', '1s'): %w", name, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative, got %s", name, value)
	}
	return nil
}

// parseDuration returns the parsed value or def when empty. Values are validated at load time.
func parseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// GetRestoreDelay returns the settling delay before anchor restoration
func (s *SessionConfig) GetRestoreDelay() time.Duration {
	return parseDuration(s.RestoreDelay, DefaultRestoreDelay)
}

// GetRoomCaptureDelay returns the delay before the room capture check
func (s *SessionConfig) GetRoomCaptureDelay() time.Duration {
	return parseDuration(s.RoomCaptureDelay, DefaultRoomCaptureDelay)
}

// GetFrameRate returns the frame rate, using the default if unset
func (s *SessionConfig) GetFrameRate() int {
	if s.FrameRate == 0 {
		return DefaultFrameRate
	}
	return s.FrameRate
}

// GetFrameInterval returns the duration of one frame
func (s *SessionConfig) GetFrameInterval() time.Duration {
	return time.Second / time.Duration(s.GetFrameRate())
}

// GetMaxRetries returns the number of retries after the first attempt
func (a *AssetsConfig) GetMaxRetries() int {
	if a.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *a.MaxRetries
}

// GetTimeout returns the per-request timeout
func (a *AssetsConfig) GetTimeout() time.Duration {
	return parseDuration(a.Timeout, DefaultAssetTimeout)
}

// GetInitialInterval returns the first backoff interval
func (a *AssetsConfig) GetInitialInterval() time.Duration {
	return parseDuration(a.Backoff.initialInterval(), DefaultInitialBackoff)
}

// GetMaxInterval returns the backoff interval cap
func (a *AssetsConfig) GetMaxInterval() time.Duration {
	return parseDuration(a.Backoff.maxInterval(), DefaultMaxBackoff)
}

// GetMultiplier returns the backoff growth factor
func (a *AssetsConfig) GetMultiplier() float64 {
	if a.Backoff == nil || a.Backoff.Multiplier == 0 {
		return DefaultBackoffMultiplier
	}
	return a.Backoff.Multiplier
}

func (b *BackoffConfig) initialInterval() string {
	if b == nil {
		return ""
	}
	return b.InitialInterval
}

func (b *BackoffConfig) maxInterval() string {
	if b == nil {
		return ""
	}
	return b.MaxInterval
}

// GetKeyringUser returns the keyring entry of the ID token
func (a *AssetsConfig) GetKeyringUser() string {
	if a.KeyringUser == "" {
		return DefaultKeyringUser
	}
	return a.KeyringUser
}

// GetLatency returns the simulated tracking latency
func (t *TrackingConfig) GetLatency() time.Duration {
	return parseDuration(t.Latency, 0)
}

// GetStorePath returns the persistent anchor store path
func (t *TrackingConfig) GetStorePath() string {
	if t.StorePath == "" {
		return filepath.Join(".", "data", "anchors.yaml")
	}
	return t.StorePath
}
