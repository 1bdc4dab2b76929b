package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ponytojas/go-parking-monitor/config"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Log.File = filepath.Join(t.TempDir(), "monitor.log")
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	logger.Debug("sensor reading", "key", "A1_1", "value", 0)
	closeLog()

	data, err := os.ReadFile(cfg.Log.File)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"key":"A1_1"`) {
		t.Errorf("log file missing record: %s", data)
	}
}

func TestNewLoggerTUIWithoutFileDiscards(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Log.File = "-"

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	defer closeLog()
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
}

func TestNewLoggerRejectsLevel(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Log.Level = "chatty"
	if _, _, err := newLogger(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
