package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"incomecast/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "incomecast", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "incomecast") {
		t.Fatalf("unexpected state dir %q", cfg.Paths.StateDir)
	}
	if cfg.Backend.URL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected backend url %q", cfg.Backend.URL)
	}
	if cfg.MinVisible() != 2*time.Second {
		t.Fatalf("unexpected min visible %s", cfg.MinVisible())
	}
	if cfg.AttemptTimeout() != 120*time.Second {
		t.Fatalf("unexpected attempt timeout %s", cfg.AttemptTimeout())
	}
	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 2 || policy.FirstRetryDelay != 30*time.Second || policy.RetryDelay != 10*time.Second {
		t.Fatalf("unexpected retry policy %+v", policy)
	}
	if specs := cfg.PhaseSpecs(); len(specs) != 5 || specs[1].Planned != 40*time.Second {
		t.Fatalf("unexpected phase specs %+v", specs)
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path %q", cfg.HistoryPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	configPath := filepath.Join(t.TempDir(), "incomecast.toml")

	type payload struct {
		Backend struct {
			URL string `toml:"url"`
		} `toml:"backend"`
		Retry struct {
			MaxRetries   int `toml:"max_retries"`
			FirstDelayMS int `toml:"first_delay_ms"`
			DelayMS      int `toml:"delay_ms"`
		} `toml:"retry"`
		Progress struct {
			Phases []config.PhaseStep `toml:"phases"`
		} `toml:"progress"`
	}
	custom := payload{}
	custom.Backend.URL = "https://predict.example.com/"
	custom.Retry.MaxRetries = 4
	custom.Retry.FirstDelayMS = 500
	custom.Retry.DelayMS = 100
	custom.Progress.Phases = []config.PhaseStep{
		{Message: "Warming up...", DurationMS: 1000},
		{Message: "Done soon...", DurationMS: 0},
	}
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution %q exists=%v", resolved, exists)
	}
	if cfg.Backend.URL != "https://predict.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.URL)
	}
	if cfg.RetryPolicy().MaxRetries != 4 || cfg.RetryPolicy().FirstRetryDelay != 500*time.Millisecond {
		t.Fatalf("unexpected retry policy %+v", cfg.RetryPolicy())
	}
	if len(cfg.Progress.Phases) != 2 || cfg.Progress.Phases[0].Message != "Warming up..." {
		t.Fatalf("expected phase list replaced, got %+v", cfg.Progress.Phases)
	}
	if cfg.Progress.MinVisibleMS != 2000 {
		t.Fatalf("expected min visible default preserved, got %d", cfg.Progress.MinVisibleMS)
	}
}

func TestBackendURLEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "http://backend.internal:9000")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.URL != "http://backend.internal:9000" {
		t.Fatalf("expected BACKEND_URL fallback, got %q", cfg.Backend.URL)
	}

	t.Setenv("INCOMECAST_BACKEND_URL", "http://preferred:8000")
	cfg, _, _, err = config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.URL != "http://preferred:8000" {
		t.Fatalf("expected INCOMECAST_BACKEND_URL to win, got %q", cfg.Backend.URL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative retries", func(c *config.Config) { c.Retry.MaxRetries = -1 }, "retry.max_retries"},
		{"relative url", func(c *config.Config) { c.Backend.URL = "localhost:8000" }, "backend.url"},
		{"zero timeout", func(c *config.Config) { c.Backend.RequestTimeoutSeconds = -5 }, "backend.request_timeout_seconds"},
		{"negative floor", func(c *config.Config) { c.Progress.MinVisibleMS = -1 }, "progress.min_visible_ms"},
		{"blank phase", func(c *config.Config) { c.Progress.Phases[0].Message = "" }, "progress.phases[0].message"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	def := config.Default()
	if len(cfg.Progress.Phases) != len(def.Progress.Phases) {
		t.Fatalf("sample phases diverge from defaults: %+v", cfg.Progress.Phases)
	}
	if cfg.RetryPolicy() != def.RetryPolicy() {
		t.Fatalf("sample retry policy %+v differs from default %+v", cfg.RetryPolicy(), def.RetryPolicy())
	}
}
