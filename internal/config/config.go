package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"incomecast/internal/phase"
	"incomecast/internal/retry"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend describes how to reach the prediction service.
type Backend struct {
	URL                   string `toml:"url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
}

// Retry mirrors retry.Policy in config-file units.
type Retry struct {
	MaxRetries   int `toml:"max_retries"`
	FirstDelayMS int `toml:"first_delay_ms"`
	DelayMS      int `toml:"delay_ms"`
}

// PhaseStep is one entry of the simulated phase schedule.
type PhaseStep struct {
	Message    string `toml:"message"`
	DurationMS int    `toml:"duration_ms"`
}

// Progress controls the perceived-progress display.
type Progress struct {
	MinVisibleMS   int         `toml:"min_visible_ms"`
	TickIntervalMS int         `toml:"tick_interval_ms"`
	Phases         []PhaseStep `toml:"phases"`
}

// Paths contains local state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// History toggles the local session history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for incomecast.
//
// Configuration sections by subsystem:
//   - Backend: prediction service location and per-attempt timeout
//   - Retry: attempt budget and backoff delays
//   - Progress: minimum visible duration, tick cadence, phase schedule
//   - Paths: state (history, lock) and log directories
//   - History: session history toggle
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Backend       Backend       `toml:"backend"`
	Retry         Retry         `toml:"retry"`
	Progress      Progress      `toml:"progress"`
	Paths         Paths         `toml:"paths"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		// An explicit phase list replaces the defaults rather than merging by index.
		cfg.Progress.Phases = nil
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RetryPolicy converts the [retry] section into a retry.Policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:      c.Retry.MaxRetries,
		FirstRetryDelay: time.Duration(c.Retry.FirstDelayMS) * time.Millisecond,
		RetryDelay:      time.Duration(c.Retry.DelayMS) * time.Millisecond,
	}
}

// PhaseSpecs returns the configured phase schedule in display order.
func (c *Config) PhaseSpecs() []phase.Spec {
	specs := make([]phase.Spec, 0, len(c.Progress.Phases))
	for _, step := range c.Progress.Phases {
		specs = append(specs, phase.Spec{
			Message: step.Message,
			Planned: time.Duration(step.DurationMS) * time.Millisecond,
		})
	}
	return specs
}

// MinVisible is the minimum time a session stays in progress before a result is shown.
func (c *Config) MinVisible() time.Duration {
	return time.Duration(c.Progress.MinVisibleMS) * time.Millisecond
}

// TickInterval is how often displayed progress is recomputed.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Progress.TickIntervalMS) * time.Millisecond
}

// AttemptTimeout bounds a single backend request.
func (c *Config) AttemptTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// HistoryPath returns the SQLite database location for session history.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "incomecast.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
