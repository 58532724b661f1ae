package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultLoggerIsUsable(t *testing.T) {
	if Log == nil || ZapLogger == nil {
		t.Fatal("Expected package loggers to be set before InitLogger")
	}
	Log.Infow("no-op", "key", "value")
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")
	if err := InitLogger(Options{File: path, Level: "debug"}); err != nil {
		t.Fatalf("InitLogger() error = %v", err)
	}
	Log.Debugw("debug line", "id", 7)
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "debug line") || !strings.Contains(string(data), "DEBUG") {
		t.Errorf("log file missing debug entry:\n%s", data)
	}
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	if err := InitLogger(Options{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}
