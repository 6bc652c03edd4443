// Package walker implements component B: bounded, filtered, encoding-aware
// recursive traversal and per-file content acquisition.
package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Options configures a Walker, mirroring config.AgentConfig.
type Options struct {
	ExcludeGlobs []string
	MaxDepth     int // 0 = unbounded
	MaxFiles     int // 0 = unbounded
}

// Walker enumerates candidate file paths under a set of roots.
type Walker struct {
	opts Options
}

// New constructs a Walker from agent configuration.
func New(opts Options) *Walker {
	return &Walker{opts: opts}
}

// VisitFunc is invoked once per enumerated regular file. Returning false
// stops the walk (used to honor max_files and cooperative cancellation).
type VisitFunc func(path string) (keepGoing bool)

// SkipFunc reports whether the walker should abort immediately, used by
// the Scan Orchestrator to thread stop_requested through enumeration.
type SkipFunc func() bool

// Stats accumulates walk-time counters that feed into ScanStats.
type Stats struct {
	DirectoriesScanned int
	FilesSkipped       int
	Errors             int
}

// Walk enumerates files under roots, calling visit for each one not
// excluded. Access errors on directories/files are counted and skipped,
// never aborting the walk. If shouldStop returns true, the walk ends early
// without error.
func (w *Walker) Walk(roots []string, shouldStop SkipFunc, visit VisitFunc) Stats {
	var stats Stats
	filesYielded := 0

	for _, root := range roots {
		if shouldStop != nil && shouldStop() {
			return stats
		}
		w.walkRoot(root, shouldStop, visit, &stats, &filesYielded)
		if w.opts.MaxFiles > 0 && filesYielded >= w.opts.MaxFiles {
			return stats
		}
	}

	return stats
}

func (w *Walker) walkRoot(root string, shouldStop SkipFunc, visit VisitFunc, stats *Stats, filesYielded *int) {
	cleanRoot := filepath.Clean(root)

	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if shouldStop != nil && shouldStop() {
			return filepath.SkipAll
		}

		if err != nil {
			stats.Errors++
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			stats.DirectoriesScanned++

			if w.isExcluded(path) {
				return filepath.SkipDir
			}

			if w.opts.MaxDepth > 0 {
				if pathDepth(cleanRoot, path) > w.opts.MaxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if w.isExcluded(path) {
			stats.FilesSkipped++
			return nil
		}

		if w.opts.MaxFiles > 0 && *filesYielded >= w.opts.MaxFiles {
			return filepath.SkipAll
		}

		*filesYielded++
		if !visit(path) {
			return filepath.SkipAll
		}
		return nil
	})
}

// pathDepth reports how many directory levels path lies below root, using
// the path relative to root rather than a raw separator-count difference —
// counting separators in root itself (e.g. root "/" already contains one)
// would otherwise under-count every descendant's depth by one.
func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

// isExcluded reports whether path or its containing directory matches any
// configured exclusion glob, after forward-slash normalization.
func (w *Walker) isExcluded(path string) bool {
	normalized := filepath.ToSlash(path)
	dir := filepath.ToSlash(filepath.Dir(path))

	for _, glob := range w.opts.ExcludeGlobs {
		if matched, _ := filepath.Match(glob, normalized); matched {
			return true
		}
		if matched, _ := filepath.Match(glob, dir); matched {
			return true
		}
		// Support "*/pattern/*"-style globs against path segments, since
		// filepath.Match does not treat "*" as crossing path separators.
		if matchesAnySegmentGlob(glob, normalized) {
			return true
		}
	}
	return false
}

func matchesAnySegmentGlob(glob, normalized string) bool {
	trimmed := strings.Trim(glob, "*/")
	if trimmed == "" {
		return false
	}
	for _, seg := range strings.Split(normalized, "/") {
		if seg == trimmed {
			return true
		}
	}
	return false
}

// WholeSystemRoots expands the literal "*" root into the platform-defined
// root set of spec.md §4.B, filtered to existing and readable entries.
// Missing entries are dropped silently.
func WholeSystemRoots() []string {
	if runtime.GOOS == "windows" {
		return windowsWholeSystemRoots()
	}
	return unixWholeSystemRoots()
}

func unixWholeSystemRoots() []string {
	candidates := []string{
		"/", "/home", "/root", "/var", "/var/www", "/opt", "/tmp",
		"/etc", "/usr", "/usr/local", "/srv", "/mnt", "/media",
	}
	return filterExisting(candidates)
}

func windowsWholeSystemRoots() []string {
	var candidates []string
	for letter := 'A'; letter <= 'Z'; letter++ {
		drive := string(letter) + `:\`
		if _, err := os.Stat(drive); err == nil {
			candidates = append(candidates, drive)
			for _, sub := range []string{`Users`, `ProgramData`, `Program Files`, `inetpub`, `Windows\Temp`} {
				candidates = append(candidates, filepath.Join(drive, sub))
			}
		}
	}
	return filterExisting(candidates)
}

func filterExisting(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, p)
	}
	return out
}
