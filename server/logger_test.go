package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLoggerWritesDebugToFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "arena.log")
	if err := InitLogger(path, "error"); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	Log.Debugw("tick budget exceeded", "room", "r1")
	SyncLogger()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), "tick budget exceeded") || !strings.Contains(string(b), "DEBUG") {
		t.Fatalf("debug line missing from log file: %q", b)
	}
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	if err := InitLogger(filepath.Join(t.TempDir(), "arena.log"), "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if Log != prev {
		t.Fatalf("logger replaced despite invalid level")
	}
}
