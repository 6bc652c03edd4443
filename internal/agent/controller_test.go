package agent

import (
	"os"
	"path/filepath"
	"testing"

	"pciagent/internal/audit"
	"pciagent/internal/config"
)

func testConfig(t *testing.T, roots []string) *config.Config {
	t.Helper()
	return &config.Config{
		Detection: config.DetectionConfig{RequireLuhn: true, MinConfidence: 0.5, ContextWindowChars: 40, ExcludeMasked: true},
		Agent: config.AgentConfig{
			ScanRoots:        roots,
			MaxFileSizeBytes: 1 << 20,
			Concurrency:      2,
			ScanTextFiles:    true,
		},
		Privacy: config.PrivacyConfig{RedactPAN: true, ShowLast4Only: true},
		Audit:   config.AuditConfig{LogPath: filepath.Join(t.TempDir(), "audit.log")},
	}
}

func newTestController(t *testing.T, roots []string) *Controller {
	t.Helper()
	cfg := testConfig(t, roots)
	logger, err := audit.Open(cfg.Audit.LogPath, false)
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return New(cfg, "test-agent", logger, nil)
}

func TestControllerRunToCompletionFindsMatch(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("card number 4111111111111111"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}

	ctrl := newTestController(t, nil)
	rep, err := ctrl.RunToCompletion("alice", []string{dir})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if len(rep.ScanResults.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(rep.ScanResults.Findings))
	}
	if rep.Metadata.Operator != "alice" {
		t.Errorf("expected operator alice, got %s", rep.Metadata.Operator)
	}
}

func TestControllerRejectsConcurrentStart(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		name := filepath.Join(dir, "file.txt")
		if err := os.WriteFile(name, []byte("nothing sensitive"), 0o644); err != nil {
			t.Fatalf("writing test file: %v", err)
		}
	}

	ctrl := newTestController(t, nil)
	if _, err := ctrl.Start("alice", []string{dir}); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	if _, err := ctrl.Start("bob", []string{dir}); err != ErrSessionBusy {
		t.Errorf("expected ErrSessionBusy for concurrent start, got %v", err)
	}

	// Drain the first scan's terminal event so the test doesn't leak a goroutine.
	for ev := range ctrl.Events() {
		if ev.Kind == EventCompleted {
			break
		}
	}
}

func TestControllerRejectsEmptyRoots(t *testing.T) {
	ctrl := newTestController(t, nil)
	if _, err := ctrl.Start("alice", nil); err == nil {
		t.Error("expected an error when no roots are configured or supplied")
	}
}

func TestControllerRejectsAllInaccessibleRoots(t *testing.T) {
	ctrl := newTestController(t, nil)
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := ctrl.Start("alice", []string{missing}); err == nil {
		t.Error("expected an error when every requested root is inaccessible")
	}
}

func TestControllerSkipsInaccessibleRootButScansValidOne(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("4111111111111111"), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	ctrl := newTestController(t, nil)
	rep, err := ctrl.RunToCompletion("alice", []string{missing, dir})
	if err != nil {
		t.Fatalf("RunToCompletion: %v", err)
	}
	if len(rep.ScanResults.Findings) != 1 {
		t.Errorf("expected the valid root to still be scanned, got %d findings", len(rep.ScanResults.Findings))
	}
}

func TestControllerStatusWithNoSession(t *testing.T) {
	ctrl := newTestController(t, nil)
	if _, err := ctrl.Status(); err != ErrNoActiveSession {
		t.Errorf("expected ErrNoActiveSession, got %v", err)
	}
}
