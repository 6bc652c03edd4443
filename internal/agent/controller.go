package agent

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"pciagent/internal/audit"
	"pciagent/internal/config"
	"pciagent/internal/detector"
	"pciagent/internal/report"
	"pciagent/internal/scanner"
	"pciagent/internal/telemetry"
	"pciagent/internal/walker"
)

// EventKind distinguishes the event stream pushed out of the controller to
// its consumers (CLI, WebSocket dispatcher), realizing the typed
// progress-event design note of spec.md §9.
type EventKind string

const (
	EventProgress  EventKind = "scan-progress"
	EventCompleted EventKind = "scan-completed"
	EventError     EventKind = "scan-error"
	EventStatus    EventKind = "scan-status-response"
)

// Event is pushed on Controller.Events for every state change worth
// reporting upstream.
type Event struct {
	Kind     EventKind
	ScanID   string
	Progress scanner.ProgressEvent
	Report   *report.Report
	Err      error
}

// Controller implements component F. Its collaborators (detector, walker,
// audit logger) are injected, not global singletons (spec.md §9).
type Controller struct {
	mu sync.Mutex

	cfg        *config.Config
	agentID    string
	auditLog   *audit.Logger
	reportBldr *report.Builder
	tel        *telemetry.Provider

	current *Session
	events  chan Event
}

// New constructs a Controller from its collaborators. A nil tel is replaced
// with a no-op provider, matching the teacher's NewWithRouter fallback.
func New(cfg *config.Config, agentID string, auditLog *audit.Logger, tel *telemetry.Provider) *Controller {
	if tel == nil {
		tel = telemetry.NoopProvider()
	}
	return &Controller{
		cfg:        cfg,
		agentID:    agentID,
		auditLog:   auditLog,
		reportBldr: report.New(cfg.Privacy.AllowFullPANRetention, cfg.Privacy.RedactPAN),
		tel:        tel,
		events:     make(chan Event, 64),
	}
}

// Events returns the channel of progress/completion/error events.
func (c *Controller) Events() <-chan Event { return c.events }

// Status reports the current session, or ErrNoActiveSession.
func (c *Controller) Status() (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Snapshot{}, ErrNoActiveSession
	}
	return c.current.Snapshot(), nil
}

// Stop requests cancellation of the active session.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.State() != Running {
		return ErrNoActiveSession
	}
	c.current.RequestStop()
	_ = c.auditLog.LogUserAction("stop_requested", c.current.ScanID)
	return nil
}

// Start validates configuration and roots, enforces single-session-at-a-
// time, and begins a scan asynchronously. It returns the new scan id.
func (c *Controller) Start(operator string, rootsOverride []string) (string, error) {
	c.mu.Lock()
	if c.current != nil && (c.current.State() == Running || c.current.State() == Stopping) {
		c.mu.Unlock()
		_ = c.auditLog.LogScanError("", ErrSessionBusy.Error())
		return "", ErrSessionBusy
	}

	roots := config.NormalizedRoots(rootsOverride)
	if len(roots) == 0 {
		roots = config.NormalizedRoots(c.cfg.Agent.ScanRoots)
	}
	wholeSystem := len(roots) == 1 && roots[0] == "*"
	roots = expandWholeSystem(roots)
	if !wholeSystem {
		roots = accessibleRoots(roots, c.auditLog)
	}

	if err := c.validateForStart(roots); err != nil {
		c.mu.Unlock()
		_ = c.auditLog.LogScanError("", err.Error())
		return "", err
	}

	if c.cfg.Privacy.AllowFullPANRetention {
		_ = c.auditLog.LogSecurityEvent("warning", "full PAN retention is enabled for this session")
	}

	scanID := newScanID()
	sess := newSession(scanID, operator, roots, c.cfg.Hash())
	c.current = sess
	c.mu.Unlock()

	_ = c.auditLog.LogScanStarted(scanID, operator, roots, sess.ConfigHash)

	go c.runScan(sess)

	return scanID, nil
}

// RunToCompletion runs a scan synchronously, for the CLI's non-remote mode.
func (c *Controller) RunToCompletion(operator string, rootsOverride []string) (*report.Report, error) {
	scanID, err := c.Start(operator, rootsOverride)
	if err != nil {
		return nil, err
	}

	for ev := range c.events {
		if ev.ScanID != scanID {
			continue
		}
		switch ev.Kind {
		case EventCompleted:
			return ev.Report, nil
		case EventError:
			return nil, ev.Err
		}
	}
	return nil, fmt.Errorf("scan %s ended without a terminal event", scanID)
}

func (c *Controller) validateForStart(roots []string) error {
	if c.cfg == nil {
		return fmt.Errorf("%w: missing configuration", ErrConfigurationInvalid)
	}
	if len(roots) == 0 {
		return fmt.Errorf("%w: at least one scan root is required", ErrConfigurationInvalid)
	}
	if c.cfg.Agent.Concurrency <= 0 {
		return fmt.Errorf("%w: agent.concurrency must be positive", ErrConfigurationInvalid)
	}
	return nil
}

// runScan drives one scan session to completion. A panic anywhere in the
// pipeline is recovered here and reported as a Failed session rather than
// taking down the process, since this runs unsupervised on its own
// goroutine with no caller left to catch it.
func (c *Controller) runScan(sess *Session) {
	_, span := c.tel.StartScanSpan(context.Background(), sess.ScanID, sess.Operator, len(sess.Roots))
	scanStart := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scan panicked: %v", r)
			c.tel.EndScanSpan(span, 0, 0, 0, time.Since(scanStart).Milliseconds(), err)
			sess.setState(Failed)
			_ = c.auditLog.LogScanError(sess.ScanID, err.Error())
			c.events <- Event{Kind: EventError, ScanID: sess.ScanID, Err: err}
		}
	}()

	det := detector.New(
		c.cfg.Detection.RequireLuhn,
		c.cfg.Detection.MinConfidence,
		c.cfg.Detection.ContextWindowChars,
		c.cfg.Detection.ExcludeMasked,
		c.cfg.Privacy.AllowFullPANRetention,
		c.cfg.Privacy.ShowLast4Only,
	)
	w := walker.New(walker.Options{
		ExcludeGlobs: c.cfg.Agent.ExcludeGlobs,
		MaxDepth:     c.cfg.Agent.MaxDepth,
		MaxFiles:     c.cfg.Agent.MaxFiles,
	})
	rd := walker.NewReader(walker.ReaderOptions{
		MaxFileSizeBytes:   c.cfg.Agent.MaxFileSizeBytes,
		ExtensionAllowlist: c.cfg.Agent.ExtensionAllowlist,
		ScanTextFiles:      c.cfg.Agent.ScanTextFiles,
		ScanBinaryFiles:    c.cfg.Agent.ScanBinaryFiles,
	})
	orch := scanner.New(w, rd, det, c.cfg.Agent.Concurrency)

	progressCh := make(chan scanner.ProgressEvent, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for pe := range progressCh {
			c.events <- Event{Kind: EventProgress, ScanID: sess.ScanID, Progress: pe}
		}
	}()

	matches, stats := orch.Scan(sess.Roots, &sess.stop, progressCh)
	close(progressCh)
	<-done

	durationMs := time.Since(scanStart).Milliseconds()
	c.tel.EndScanSpan(span, stats.FilesScanned, stats.FilesSkipped, len(matches), durationMs, nil)

	for _, m := range matches {
		_ = c.auditLog.LogPanDetected(sess.ScanID, m.FilePath, m.LineNumber, string(m.CardBrand), m.LuhnValid, m.Confidence, m.IsMasked, "report_only")
	}

	if sess.StopRequested() {
		sess.setState(Completed)
		_ = c.auditLog.LogScanCompleted(sess.ScanID, len(matches), stats.FilesScanned, stats.Errors)
		c.events <- Event{Kind: EventCompleted, ScanID: sess.ScanID, Report: c.buildReport(sess, matches, stats)}
		return
	}

	sess.setState(Completed)
	_ = c.auditLog.LogScanCompleted(sess.ScanID, len(matches), stats.FilesScanned, stats.Errors)

	rep := c.buildReport(sess, matches, stats)
	_ = c.auditLog.LogReportGenerated(sess.ScanID, rep.Metadata.ReportHash, len(matches))

	c.events <- Event{Kind: EventCompleted, ScanID: sess.ScanID, Report: rep}
}

func (c *Controller) buildReport(sess *Session, matches []detector.Match, stats scanner.Stats) *report.Report {
	_, span := c.tel.StartReportSpan(context.Background(), sess.ScanID)
	rep := c.reportBldr.Build(report.BuildParams{
		ScanID:     sess.ScanID,
		Operator:   sess.Operator,
		AgentID:    c.agentID,
		ConfigHash: sess.ConfigHash,
		Roots:      sess.Roots,
		Config:     configSummary(c.cfg),
		Matches:    matches,
		Stats:      stats,
		ScanDate:   time.Now(),
	})
	c.tel.EndReportSpan(span, rep.Metadata.ReportHash, nil)
	return rep
}

// accessibleRoots filters to directories that exist and are readable,
// logging and skipping the rest, mirroring original_source/main.py's
// scan-root validation (exists -> isdir -> readable) before a session
// starts.
func accessibleRoots(roots []string, auditLog *audit.Logger) []string {
	var out []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			_ = auditLog.LogScanError("", fmt.Sprintf("scan root does not exist: %s", root))
			continue
		}
		if !info.IsDir() {
			_ = auditLog.LogScanError("", fmt.Sprintf("scan root is not a directory: %s", root))
			continue
		}
		if f, err := os.Open(root); err != nil {
			_ = auditLog.LogScanError("", fmt.Sprintf("scan root is not readable: %s", root))
			continue
		} else {
			f.Close()
		}
		out = append(out, root)
	}
	return out
}

func configSummary(cfg *config.Config) map[string]any {
	return map[string]any{
		"require_luhn":             cfg.Detection.RequireLuhn,
		"min_confidence":           cfg.Detection.MinConfidence,
		"exclude_masked":           cfg.Detection.ExcludeMasked,
		"concurrency":              cfg.Agent.Concurrency,
		"scan_text_files":          cfg.Agent.ScanTextFiles,
		"scan_binary_files":        cfg.Agent.ScanBinaryFiles,
		"allow_full_pan_retention": cfg.Privacy.AllowFullPANRetention,
	}
}

func expandWholeSystem(roots []string) []string {
	if len(roots) == 1 && roots[0] == "*" {
		return walker.WholeSystemRoots()
	}
	return roots
}
