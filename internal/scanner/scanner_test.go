package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"pciagent/internal/detector"
	"pciagent/internal/walker"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

func TestOrchestratorScanFindsMatches(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "card number 4111111111111111")
	writeTestFile(t, dir, "b.txt", "nothing sensitive here")

	w := walker.New(walker.Options{})
	r := walker.NewReader(walker.ReaderOptions{MaxFileSizeBytes: 1 << 20, ScanTextFiles: true})
	d := detector.New(true, 0.5, 40, true, false, true)

	orch := New(w, r, d, 2)
	events := make(chan ProgressEvent, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range events {
		}
	}()

	matches, stats := orch.Scan([]string{dir}, &StopFlag{}, events)
	close(events)
	<-done

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if stats.FilesScanned != 2 {
		t.Errorf("expected 2 files scanned, got %d", stats.FilesScanned)
	}
}

func TestOrchestratorHonorsStop(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "card number 4111111111111111")

	w := walker.New(walker.Options{})
	r := walker.NewReader(walker.ReaderOptions{MaxFileSizeBytes: 1 << 20, ScanTextFiles: true})
	d := detector.New(true, 0.5, 40, true, false, true)

	orch := New(w, r, d, 1)
	var stop StopFlag
	stop.RequestStop()

	matches, stats := orch.Scan([]string{dir}, &stop, nil)
	if matches != nil {
		t.Errorf("expected nil matches after immediate stop, got %v", matches)
	}
	if stats.FilesScanned != 0 {
		t.Errorf("expected 0 files scanned after immediate stop, got %d", stats.FilesScanned)
	}
}

func TestStopFlagWriteOnce(t *testing.T) {
	var f StopFlag
	if f.Requested() {
		t.Error("expected flag to start unrequested")
	}
	f.RequestStop()
	if !f.Requested() {
		t.Error("expected flag to be set after RequestStop")
	}
}
