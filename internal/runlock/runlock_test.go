package runlock_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"incomecast/internal/runlock"
	"incomecast/internal/services"
)

func TestAcquireExcludesSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "incomecast.lock")

	first, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("unexpected path %q", first.Path())
	}

	_, err = runlock.Acquire(path)
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !strings.Contains(err.Error(), "pid "+strconv.Itoa(os.Getpid())) {
		t.Fatalf("expected holder pid in error, got %v", err)
	}
	if services.ExitCode(err) != 3 {
		t.Fatalf("expected exit code 3, got %d", services.ExitCode(err))
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	again, err := runlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	_ = again.Release()
}

func TestReleaseNil(t *testing.T) {
	var l *runlock.Lock
	if err := l.Release(); err != nil {
		t.Fatalf("nil Release returned %v", err)
	}
}
