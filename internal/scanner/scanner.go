// Package scanner implements component C: the two-pass scan orchestrator
// that drives the Walker and Detector across a bounded worker pool.
package scanner

import (
	"sync"
	"sync/atomic"
	"time"

	"pciagent/internal/detector"
	"pciagent/internal/walker"
)

// Stats is ScanStats: monotonically non-decreasing counters for a session.
type Stats struct {
	FilesScanned        int
	FilesSkipped        int
	DirectoriesScanned  int
	MatchesFound        int
	Errors              int
	DurationSeconds     float64
}

// Phase names the progress event's stage, per spec.md §4.C.
type Phase string

const (
	PhaseCounting Phase = "counting"
	PhaseScanning Phase = "scanning"
	PhaseComplete Phase = "complete"
)

// ProgressEvent is the typed progress/completion event pushed to the
// Session Controller, realizing the "callback-based progress →
// message-passing" design note of spec.md §9.
type ProgressEvent struct {
	Phase        Phase
	FilesScanned int
	TotalFiles   int
	MatchesFound int
	CurrentFile  string
	InQueue      int
	Percentage   float64
	Completed    bool
	Stopped      bool
}

// StopFlag is a write-once cooperative cancellation flag shared with the
// Session Controller (ScanSession.stop_requested).
type StopFlag struct {
	stopped atomic.Bool
}

// RequestStop sets the flag; once true it is never cleared for the
// remainder of the session.
func (f *StopFlag) RequestStop() { f.stopped.Store(true) }

// Requested reports whether a stop has been requested.
func (f *StopFlag) Requested() bool { return f.stopped.Load() }

// Orchestrator drives a Walker and Detector across a bounded worker pool.
type Orchestrator struct {
	walker      *walker.Walker
	reader      *walker.Reader
	detector    *detector.Detector
	concurrency int
}

// New constructs an Orchestrator from its collaborators, following the
// spec's "explicit collaborators, no singletons" design note.
func New(w *walker.Walker, r *walker.Reader, d *detector.Detector, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{walker: w, reader: r, detector: d, concurrency: concurrency}
}

// Scan runs the two-pass scan over roots, emitting progress on events, and
// returns the aggregated (final-only) match list and final stats. stop
// honors cooperative cancellation: stop_requested aborts enumeration
// immediately and drops unsubmitted pass-2 tasks while letting in-flight
// file scans complete.
func (o *Orchestrator) Scan(roots []string, stop *StopFlag, events chan<- ProgressEvent) ([]detector.Match, Stats) {
	start := time.Now()
	var stats Stats

	paths, enumStats := o.enumerate(roots, stop, events)
	stats.DirectoriesScanned = enumStats.DirectoriesScanned
	stats.Errors += enumStats.Errors

	if stop.Requested() {
		stats.DurationSeconds = time.Since(start).Seconds()
		emit(events, ProgressEvent{Phase: PhaseComplete, Completed: true, Stopped: true, FilesScanned: 0, TotalFiles: len(paths)})
		return nil, stats
	}

	matches, scanStats := o.scanPaths(paths, stop, events)
	stats.FilesScanned += scanStats.FilesScanned
	stats.FilesSkipped += scanStats.FilesSkipped
	stats.Errors += scanStats.Errors
	stats.MatchesFound = len(matches)
	stats.DurationSeconds = time.Since(start).Seconds()

	emit(events, ProgressEvent{
		Phase:        PhaseComplete,
		Completed:    true,
		Stopped:      stop.Requested(),
		FilesScanned: stats.FilesScanned,
		TotalFiles:   len(paths),
		MatchesFound: stats.MatchesFound,
	})

	return matches, stats
}

// enumerate is pass 1: walk all roots and materialize the path list,
// ticking progress every 1000 paths, aborting immediately on stop.
func (o *Orchestrator) enumerate(roots []string, stop *StopFlag, events chan<- ProgressEvent) ([]string, walker.Stats) {
	var paths []string

	walkStats := o.walker.Walk(roots, stop.Requested, func(path string) bool {
		paths = append(paths, path)
		if len(paths)%1000 == 0 {
			emit(events, ProgressEvent{Phase: PhaseCounting, FilesScanned: len(paths)})
		}
		return !stop.Requested()
	})

	return paths, walkStats
}

type fileResult struct {
	matches []detector.Match
	skipped bool
	errored bool
}

// scanPaths is pass 2: a bounded worker pool of size concurrency, kept full
// via a buffered jobs channel of size 2*concurrency.
func (o *Orchestrator) scanPaths(paths []string, stop *StopFlag, events chan<- ProgressEvent) ([]detector.Match, Stats) {
	total := len(paths)
	jobs := make(chan string, 2*o.concurrency)
	results := make(chan fileResult, 2*o.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go o.worker(jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			if stop.Requested() {
				return
			}
			jobs <- p
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var matches []detector.Match
	processed := 0

	for r := range results {
		processed++
		switch {
		case r.errored:
			stats.Errors++
		case r.skipped:
			stats.FilesSkipped++
		default:
			stats.FilesScanned++
			matches = append(matches, r.matches...)
		}

		pct := 0.0
		if total > 0 {
			pct = float64(processed) / float64(total) * 100
		}
		emit(events, ProgressEvent{
			Phase:        PhaseScanning,
			FilesScanned: processed,
			TotalFiles:   total,
			MatchesFound: len(matches),
			InQueue:      total - processed,
			Percentage:   pct,
		})
	}

	return matches, stats
}

func (o *Orchestrator) worker(jobs <-chan string, results chan<- fileResult, wg *sync.WaitGroup) {
	defer wg.Done()
	for path := range jobs {
		content, reason, err := o.reader.Read(path)
		if err != nil {
			results <- fileResult{errored: true}
			continue
		}
		if reason != walker.SkipNone {
			results <- fileResult{skipped: true}
			continue
		}
		matches := o.detector.Scan(content, path)
		results <- fileResult{matches: matches}
	}
}

func emit(events chan<- ProgressEvent, e ProgressEvent) {
	if events == nil {
		return
	}
	events <- e
}
