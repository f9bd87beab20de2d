package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a temp dir so a developer's .env does not leak in.
	t.Chdir(t.TempDir())
	for _, k := range []string{"PAIRS", "INTERVAL", "HISTORY_LIMIT", "RESYNC_AFTER_SEC", "RECONNECT_AFTER_SEC", "PAIRS_FILE", "SAVE_CSV"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Pairs) != 4 || cfg.Pairs[0] != "BTCUSDT" {
		t.Errorf("unexpected default pairs %v", cfg.Pairs)
	}
	if cfg.Interval != "1m" || cfg.HistoryLimit != 100 || cfg.WindowCapacity != 100 {
		t.Errorf("unexpected defaults: interval=%s limit=%d cap=%d", cfg.Interval, cfg.HistoryLimit, cfg.WindowCapacity)
	}
	if cfg.ResyncAfter != 600*time.Second || cfg.ReconnectAfter != 1200*time.Second {
		t.Errorf("unexpected staleness thresholds %v %v", cfg.ResyncAfter, cfg.ReconnectAfter)
	}
	if !cfg.SaveCSV {
		t.Error("expected SAVE_CSV default true")
	}
	if cfg.Precision("ADAUSDT") != 4 || cfg.Precision("ETHUSDT") != 3 || cfg.Precision("XRPUSDT") != 4 {
		t.Errorf("unexpected precision map %v", cfg.PricePrecisions)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAIRS", " btcusdt , ,dogeusdt")
	t.Setenv("HISTORY_LIMIT", "200")
	t.Setenv("WINDOW_CAPACITY", "150")
	t.Setenv("SAVE_CSV", "false")
	t.Setenv("REST_RATE_PER_SEC", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Pairs) != 2 || cfg.Pairs[1] != "DOGEUSDT" {
		t.Errorf("unexpected pairs %v", cfg.Pairs)
	}
	if cfg.HistoryLimit != 200 || cfg.WindowCapacity != 150 || cfg.SaveCSV {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RESTRatePerSec != 5 {
		t.Errorf("expected invalid rate to fall back to 5, got %v", cfg.RESTRatePerSec)
	}
}

func TestLoad_RejectsSmallWindow(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WINDOW_CAPACITY", "20")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for window capacity below 50")
	}
}

func TestLoad_PairsFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "pairs.yaml")
	yml := "pairs:\n  - symbol: bnbusdt\n    precision: 1\n  - symbol: ''\n  - symbol: XRPUSDT\n    precision: 5\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAIRS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Pairs) != 2 || cfg.Pairs[0] != "BNBUSDT" || cfg.Pairs[1] != "XRPUSDT" {
		t.Errorf("unexpected pairs %v", cfg.Pairs)
	}
	if cfg.Precision("BNBUSDT") != 1 || cfg.Precision("XRPUSDT") != 5 {
		t.Errorf("unexpected precisions %v", cfg.PricePrecisions)
	}
}

func TestParsePairsFile_Invalid(t *testing.T) {
	if _, err := ParsePairsFile([]byte("pairs: [")); err == nil {
		t.Fatal("expected YAML error")
	}
}
