package testsupport

import (
	"path/filepath"
	"testing"

	"incomecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithBackendURL points the config at a test server.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.URL = url
	}
}

// WithFastTimings shrinks the floor, retry delays, and phase schedule so
// end-to-end tests finish in milliseconds.
func WithFastTimings() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Progress.MinVisibleMS = 0
		b.cfg.Progress.TickIntervalMS = 5
		b.cfg.Retry.FirstDelayMS = 5
		b.cfg.Retry.DelayMS = 1
		b.cfg.Progress.Phases = []config.PhaseStep{
			{Message: "Connecting to server...", DurationMS: 10},
			{Message: "Finalizing results...", DurationMS: 0},
		}
	}
}

// WithNtfyTopic enables notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}
