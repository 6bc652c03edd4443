package walker

import (
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestWalkVisitsAllFiles(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "sub", "b.txt"), "b")

	w := New(Options{})
	var visited []string
	w.Walk([]string{dir}, nil, func(path string) bool {
		visited = append(visited, path)
		return true
	})

	if len(visited) != 2 {
		t.Fatalf("expected 2 files visited, got %d: %v", len(visited), visited)
	}
}

func TestWalkExcludesGlob(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "keep.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, ".git", "config"), "b")

	w := New(Options{ExcludeGlobs: []string{"*/.git/*"}})
	var visited []string
	w.Walk([]string{dir}, nil, func(path string) bool {
		visited = append(visited, path)
		return true
	})

	if len(visited) != 1 {
		t.Fatalf("expected 1 file visited (git dir excluded), got %d: %v", len(visited), visited)
	}
}

func TestWalkHonorsMaxFiles(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "b.txt"), "b")
	mustWriteFile(t, filepath.Join(dir, "c.txt"), "c")

	w := New(Options{MaxFiles: 2})
	var visited []string
	w.Walk([]string{dir}, nil, func(path string) bool {
		visited = append(visited, path)
		return true
	})

	if len(visited) != 2 {
		t.Fatalf("expected exactly 2 files visited, got %d", len(visited))
	}
}

func TestWalkHonorsMaxDepth(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "top.txt"), "a")            // depth 1
	mustWriteFile(t, filepath.Join(dir, "a", "mid.txt"), "b")       // depth 2
	mustWriteFile(t, filepath.Join(dir, "a", "b", "deep.txt"), "c") // depth 3

	w := New(Options{MaxDepth: 2})
	var visited []string
	w.Walk([]string{dir}, nil, func(path string) bool {
		visited = append(visited, path)
		return true
	})

	if len(visited) != 2 {
		t.Fatalf("expected 2 files within max_depth=2, got %d: %v", len(visited), visited)
	}
}

func TestPathDepthCountsRelativeToRootNotRootItself(t *testing.T) {
	// Regression: a root whose Clean() form already contains a separator
	// (e.g. "/") must not shift every descendant's depth down by one.
	if got := pathDepth(string(os.PathSeparator), filepath.Join(string(os.PathSeparator), "tmp")); got != 1 {
		t.Errorf("expected immediate child of root separator to be depth 1, got %d", got)
	}
	if got := pathDepth(string(os.PathSeparator), filepath.Join(string(os.PathSeparator), "tmp", "a")); got != 2 {
		t.Errorf("expected grandchild of root separator to be depth 2, got %d", got)
	}
}

func TestWalkHonorsShouldStop(t *testing.T) {
	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"), "a")
	mustWriteFile(t, filepath.Join(dir, "b.txt"), "b")

	w := New(Options{})
	stats := w.Walk([]string{dir}, func() bool { return true }, func(path string) bool {
		t.Error("visit should never be called when shouldStop is already true")
		return true
	})

	if stats.DirectoriesScanned != 0 {
		t.Errorf("expected no directories scanned, got %d", stats.DirectoriesScanned)
	}
}
