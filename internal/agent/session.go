// Package agent implements component F: scan lifecycle, configuration
// validation, command dispatch, and progress/completion eventing.
package agent

import (
	"sync"
	"time"

	"pciagent/internal/scanner"
)

// State is the ScanSession state machine of spec.md §4.F:
// Idle --start--> Running --(complete|fail)--> Idle
// Running --stop--> Stopping --drain--> Idle
type State int

const (
	Idle State = iota
	Running
	Stopping
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Session is a ScanSession: identity, roots, and mutable lifecycle state.
type Session struct {
	mu sync.RWMutex

	ScanID     string
	Operator   string
	StartedAt  time.Time
	Roots      []string
	ConfigHash string

	state State
	stop  scanner.StopFlag
}

func newSession(scanID, operator string, roots []string, configHash string) *Session {
	return &Session{
		ScanID:     scanID,
		Operator:   operator,
		StartedAt:  time.Now(),
		Roots:      roots,
		ConfigHash: configHash,
		state:      Running,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// RequestStop sets the write-once stop flag and transitions to Stopping.
func (s *Session) RequestStop() {
	s.stop.RequestStop()
	s.setState(Stopping)
}

// StopRequested reports whether a stop has been requested.
func (s *Session) StopRequested() bool {
	return s.stop.Requested()
}

// Snapshot is an immutable point-in-time view of the session, safe to
// expose across goroutines without holding the session's lock.
type Snapshot struct {
	ScanID        string
	Operator      string
	StartedAt     time.Time
	Roots         []string
	ConfigHash    string
	State         State
	StopRequested bool
}

// Snapshot copies the session's current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		ScanID:        s.ScanID,
		Operator:      s.Operator,
		StartedAt:     s.StartedAt,
		Roots:         append([]string(nil), s.Roots...),
		ConfigHash:    s.ConfigHash,
		State:         s.state,
		StopRequested: s.stop.Requested(),
	}
}
