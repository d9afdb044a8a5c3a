package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"incomecast/internal/config"
	"incomecast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	backend    *testsupport.BackendServer
	configPath string
}

func setupCLITestEnv(t *testing.T, responses ...testsupport.BackendResponse) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("INCOMECAST_BACKEND_URL", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("INCOMECAST_NTFY_TOPIC", "")

	srv := testsupport.NewBackendServer(t, responses...)
	cfg := testsupport.NewConfig(t, testsupport.WithFastTimings(), testsupport.WithBackendURL(srv.URL))

	configPath := filepath.Join(t.TempDir(), "incomecast.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, backend: srv, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
