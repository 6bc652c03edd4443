// Package audit implements component E: an append-only, thread-safe,
// structured event log with sanitized paths.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"pciagent/internal/redact"
	"pciagent/internal/redaction"
)

// EventType enumerates the audit log's event catalog (spec.md §4.E).
type EventType string

const (
	EventAuditLogInitialized EventType = "audit_log_initialized"
	EventScanStarted         EventType = "scan_started"
	EventScanCompleted       EventType = "scan_completed"
	EventScanError           EventType = "scan_error"
	EventPanDetected         EventType = "pan_detected"
	EventReportGenerated     EventType = "report_generated"
	EventReportSent          EventType = "report_sent"
	EventReportSendFailed    EventType = "report_send_failed"
	EventConfigChanged       EventType = "config_changed"
	EventUserAction          EventType = "user_action"
	EventSecurityEvent       EventType = "security_event"
	EventFileAccess          EventType = "file_access"
)

// Logger is a single global-mutex-guarded append-only NDJSON writer.
type Logger struct {
	mu                    sync.Mutex
	file                  *os.File
	enableDetailedLogging bool
	initialized           bool
	redactor              *redaction.PatternRedactor
}

// Open opens (creating if necessary) the audit log at path, auto-creating
// its parent directory. The first Write call emits audit_log_initialized
// if the file did not already exist.
func Open(path string, enableDetailedLogging bool) (*Logger, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating audit log directory: %w", err)
		}
	}

	_, statErr := os.Stat(path)
	existed := statErr == nil

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G302 -- append-only audit log
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	l := &Logger{
		file:                  f,
		enableDetailedLogging: enableDetailedLogging,
		initialized:           existed,
		redactor:              redaction.NewPatternRedactor(),
	}
	return l, nil
}

// Close closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// baseEntry builds the common fields shared by every audit entry.
func baseEntry(eventType EventType, fields map[string]any) map[string]any {
	entry := map[string]any{
		"timestamp":  time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"event_type": string(eventType),
		"process_id": os.Getpid(),
		"thread_id":  goroutineLabel(),
	}
	for k, v := range fields {
		entry[k] = v
	}
	return entry
}

// goroutineLabel stands in for a thread id, since Go goroutines have no
// stable numeric identifier exposed by the runtime; the process id plus
// timestamp already gives audit entries a total order via the log mutex.
func goroutineLabel() string {
	return runtime.GOOS + "/goroutine"
}

// write serializes entry as one NDJSON line and flushes, serialized by the
// global mutex (spec.md §4.E, §5).
func (l *Logger) write(entry map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		l.initialized = true
		initEntry := baseEntry(EventAuditLogInitialized, nil)
		if err := l.writeLocked(initEntry); err != nil {
			return err
		}
	}

	return l.writeLocked(entry)
}

func (l *Logger) writeLocked(entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := l.file.Write(data); err != nil {
		return err
	}
	return l.file.Sync()
}

// LogScanStarted records scan_started. directories is redacted to
// "<redacted>" when detailed logging is disabled.
func (l *Logger) LogScanStarted(scanID, operator string, directories []string, configHash string) error {
	var dirsField any = directories
	if !l.enableDetailedLogging {
		dirsField = "<redacted>"
	}
	return l.write(baseEntry(EventScanStarted, map[string]any{
		"scan_id":            scanID,
		"operator":           operator,
		"directories_count":  len(directories),
		"directories":        dirsField,
		"config_hash":        configHash,
	}))
}

// LogScanCompleted records scan_completed.
func (l *Logger) LogScanCompleted(scanID string, matchesFound, filesScanned, errors int) error {
	return l.write(baseEntry(EventScanCompleted, map[string]any{
		"scan_id":       scanID,
		"matches_found": matchesFound,
		"files_scanned": filesScanned,
		"errors":        errors,
		"status":        "success",
	}))
}

// LogScanError records scan_error. errorMessage passes through the
// free-text redactor first, since spec.md §8 forbids raw PAN content in
// any error message and arbitrary Go error strings are not otherwise
// guaranteed to respect that.
func (l *Logger) LogScanError(scanID, errorMessage string) error {
	return l.write(baseEntry(EventScanError, map[string]any{
		"scan_id":       scanID,
		"error_message": l.redactor.Redact(errorMessage),
		"status":        "error",
	}))
}

// RiskLevel mirrors §4.D's priority score applied to a single match.
func RiskLevel(luhnValid, isMasked bool, confidence float64) string {
	switch {
	case luhnValid && !isMasked && confidence > 0.8:
		return "critical"
	case luhnValid && !isMasked:
		return "high"
	case luhnValid && isMasked:
		return "medium"
	default:
		return "low"
	}
}

// LogPanDetected records pan_detected, with a sanitized file path.
func (l *Logger) LogPanDetected(scanID, filePath string, lineNumber int, cardType string, luhnValid bool, confidence float64, isMasked bool, actionTaken string) error {
	return l.write(baseEntry(EventPanDetected, map[string]any{
		"scan_id":          scanID,
		"file_path":        redact.FilePath(filePath),
		"line_number":      lineNumber,
		"card_type":        cardType,
		"luhn_valid":       luhnValid,
		"confidence_score": confidence,
		"is_masked":        isMasked,
		"action_taken":     actionTaken,
		"risk_level":       RiskLevel(luhnValid, isMasked, confidence),
	}))
}

// LogReportGenerated records report_generated.
func (l *Logger) LogReportGenerated(scanID, reportHash string, findingsCount int) error {
	return l.write(baseEntry(EventReportGenerated, map[string]any{
		"scan_id":        scanID,
		"report_hash":    reportHash,
		"findings_count": findingsCount,
	}))
}

// LogReportSent records report_sent.
func (l *Logger) LogReportSent(scanID, serverURL string) error {
	return l.write(baseEntry(EventReportSent, map[string]any{
		"scan_id":    scanID,
		"server_url": serverURL,
	}))
}

// LogReportSendFailed records report_send_failed.
func (l *Logger) LogReportSendFailed(scanID, reason string) error {
	return l.write(baseEntry(EventReportSendFailed, map[string]any{
		"scan_id": scanID,
		"reason":  l.redactor.Redact(reason),
	}))
}

// LogConfigChanged records config_changed, redacting any field whose key
// contains password/token/key (case-insensitive), per spec.md §4.E.
func (l *Logger) LogConfigChanged(changes map[string]any) error {
	redacted := make(map[string]any, len(changes))
	for k, v := range changes {
		redacted[k] = redact.Value(k, v)
	}
	return l.write(baseEntry(EventConfigChanged, map[string]any{
		"changes": redacted,
	}))
}

// LogUserAction records user_action.
func (l *Logger) LogUserAction(action, detail string) error {
	return l.write(baseEntry(EventUserAction, map[string]any{
		"action": action,
		"detail": detail,
	}))
}

// LogSecurityEvent records security_event.
func (l *Logger) LogSecurityEvent(severity, message string) error {
	return l.write(baseEntry(EventSecurityEvent, map[string]any{
		"severity": severity,
		"message":  l.redactor.Redact(message),
	}))
}

// LogFileAccess records file_access, only when detailed logging is
// enabled, per spec.md §4.E.
func (l *Logger) LogFileAccess(scanID, filePath, action string) error {
	if !l.enableDetailedLogging {
		return nil
	}
	return l.write(baseEntry(EventFileAccess, map[string]any{
		"scan_id":   scanID,
		"file_path": redact.FilePath(filePath),
		"action":    action,
	}))
}
