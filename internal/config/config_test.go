package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	return path
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := writeTuning(t, "chunk_height: 64\nupdate_budget: 4\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkHeight != 64 || cfg.UpdateBudget != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	def := Defaults()
	if cfg.ChunkWidth != def.ChunkWidth || cfg.ViewDistX != def.ViewDistX {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []string{
		"chunk_width: 0\n",
		"view_dist_x: -2\n",
		"replant_interval_ms: 0\n",
	}
	for _, body := range cases {
		if _, err := Load(writeTuning(t, body)); err == nil {
			t.Errorf("accepted invalid tuning %q", body)
		}
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	if _, err := Load(writeTuning(t, "chunk_width: [not an int\n")); err == nil {
		t.Fatalf("accepted malformed yaml")
	}
}

func TestIntervalAccessors(t *testing.T) {
	cfg := Defaults()
	if got := cfg.VisibleInterval(); got != time.Second {
		t.Fatalf("visible interval = %v, want 1s", got)
	}
	if got := cfg.DaytimeInterval(); got != 30*time.Second {
		t.Fatalf("daytime interval = %v, want 30s", got)
	}
	if got := cfg.ReplantInterval(); got != 100*time.Millisecond {
		t.Fatalf("replant interval = %v, want 100ms", got)
	}
}
