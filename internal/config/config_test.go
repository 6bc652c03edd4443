package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Detection.MinConfidence != 0.70 {
		t.Errorf("expected default min_confidence 0.70, got %v", cfg.Detection.MinConfidence)
	}
	if cfg.Agent.Concurrency != 4 {
		t.Errorf("expected default concurrency 4, got %d", cfg.Agent.Concurrency)
	}
	if !cfg.Privacy.RedactPAN {
		t.Error("expected redact_pan to default true")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	yamlContent := `
detection:
  min_confidence: 0.9
agent:
  concurrency: 8
  scan_roots:
    - /data
`
	if err := writeFile(path, yamlContent); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Detection.MinConfidence != 0.9 {
		t.Errorf("expected min_confidence 0.9, got %v", cfg.Detection.MinConfidence)
	}
	if cfg.Agent.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Agent.Concurrency)
	}
	if len(cfg.Agent.ScanRoots) != 1 || cfg.Agent.ScanRoots[0] != "/data" {
		t.Errorf("unexpected scan roots: %v", cfg.Agent.ScanRoots)
	}
}

func TestValidateRejectsBadMinConfidence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := writeFile(path, "detection:\n  min_confidence: 1.5\n"); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected validation error for out-of-range min_confidence")
	}
}

func TestNormalizedRootsTrimsAndDrops(t *testing.T) {
	got := NormalizedRoots([]string{" /a ", "", "/b"})
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Errorf("unexpected normalized roots: %v", got)
	}
}

func TestHashIsStableAcrossCalls(t *testing.T) {
	cfg := defaults()
	if cfg.Hash() != cfg.Hash() {
		t.Error("expected Hash to be deterministic")
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
