package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"incomecast/internal/services"
)

func TestStatusReportsBackend(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, env.configPath, "status", "--json")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, stdout)
	}
	if report.Health == nil || report.Health.Status != "healthy" {
		t.Fatalf("unexpected health %+v (%s)", report.Health, report.HealthError)
	}
	if report.Model == nil || !report.Model.ModelTrained {
		t.Fatalf("unexpected model %+v (%s)", report.Model, report.ModelError)
	}
	if report.ConfigPath != env.configPath {
		t.Fatalf("unexpected config path %q", report.ConfigPath)
	}
	if !report.Ready {
		t.Fatalf("expected ready backend, got %+v", report)
	}
}

func TestStatusUnreachableBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Close()

	stdout, _, err := runCLI(t, env.configPath, "status")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if !strings.Contains(stdout, "[ERROR]") || !strings.Contains(stdout, "== Backend ==") {
		t.Fatalf("expected error lines, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Ready") || !strings.Contains(stdout, "no, predictions will retry") {
		t.Fatalf("expected not-ready line, got:\n%s", stdout)
	}
}

func TestBackendFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	stdout, _, err := runCLI(t, env.configPath, "--backend", "http://127.0.0.1:1/", "status", "--json")
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if report.BackendURL != "http://127.0.0.1:1" || report.Health != nil || report.Ready {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestOptionsCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "", "options", "marital-status")
	if err != nil {
		t.Fatalf("options returned error: %v", err)
	}
	if !strings.Contains(stdout, "* Never-married") || !strings.Contains(stdout, "  Divorced") {
		t.Fatalf("unexpected options output:\n%s", stdout)
	}

	summary, _, err := runCLI(t, "", "options")
	if err != nil || !strings.Contains(summary, "native-country") {
		t.Fatalf("unexpected summary %q (%v)", summary, err)
	}

	_, _, err = runCLI(t, "", "options", "age")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for numeric field, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	target := filepath.Join(t.TempDir(), "config.toml")

	stdout, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init returned error: %v", err)
	}
	if !strings.Contains(stdout, target) {
		t.Fatalf("unexpected init output %q", stdout)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	validated, _, err := runCLI(t, target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate returned error: %v", err)
	}
	if !strings.Contains(validated, "Configuration valid") || !strings.Contains(validated, "Phases: 5") {
		t.Fatalf("unexpected validate output:\n%s", validated)
	}
}

func TestInvalidConfigMapsToExitCodeTwo(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[retry]\nmax_retries = -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, path, "status")
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("expected exit code 2, got %d (%v)", code, err)
	}
}

func TestTestNotifyRequiresTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "test-notify")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
