package audit

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSummarizeTalliesByEventType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.LogScanStarted("scan-1", "alice", []string{"/tmp"}, "hash"); err != nil {
		t.Fatalf("LogScanStarted: %v", err)
	}
	if err := l.LogScanStarted("scan-2", "alice", []string{"/tmp"}, "hash"); err != nil {
		t.Fatalf("LogScanStarted: %v", err)
	}
	l.Close()

	summary, err := Summarize(path)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.TotalEntries != 3 {
		t.Errorf("expected 3 entries (1 init + 2 scan_started), got %d", summary.TotalEntries)
	}
	if summary.ByEventType[string(EventScanStarted)] != 2 {
		t.Errorf("expected 2 scan_started entries, got %d", summary.ByEventType[string(EventScanStarted)])
	}
}

func TestExportCopiesRawLogContent(t *testing.T) {
	src := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(src, true)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.LogUserAction("stop_requested", "scan-1"); err != nil {
		t.Fatalf("LogUserAction: %v", err)
	}
	l.Close()

	dest := filepath.Join(t.TempDir(), "exported.log")
	if err := Export(src, dest); err != nil {
		t.Fatalf("Export: %v", err)
	}

	want, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("reading source: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if string(got) != string(want) {
		t.Error("expected exported content to match the source audit log exactly")
	}
}
