package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "mode: DRY_RUN\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("addr = %s", cfg.Server.Addr)
	}
	if cfg.Deriv.AppID != "1089" {
		t.Errorf("app_id = %s", cfg.Deriv.AppID)
	}
	if cfg.Analysis.WindowSize != 100 || cfg.Analysis.MinSample != 20 {
		t.Errorf("analysis defaults = %+v", cfg.Analysis)
	}
	if cfg.Storage.TickRetention != time.Hour {
		t.Errorf("tick_retention = %s", cfg.Storage.TickRetention)
	}
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	path := writeConfig(t, "mode: PAPER\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for mode PAPER")
	}
}

func TestLoadConfigRejectsWindowSmallerThanSample(t *testing.T) {
	path := writeConfig(t, "mode: LIVE\nanalysis:\n  window_size: 10\n  min_sample: 50\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for window < sample")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Mode != "DRY_RUN" {
		t.Errorf("mode = %s", cfg.Mode)
	}
}
