// Package wsclient implements the bidirectional event socket of spec.md
// §1: specified only by message shapes, so this package realizes it as a
// raw WebSocket JSON envelope (coder/websocket) rather than the original
// agent's Socket.IO protocol, grounded on original_source/websocket_client.py
// for the event catalog and internal/websocket/dial.go for dial idiom.
package wsclient

import "encoding/json"

// Envelope is one event on the wire: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// JoinAgentData is sent once on connect to join the agent's command room.
type JoinAgentData struct {
	AgentID string `json:"agent_id"`
}

// HeartbeatData is sent every heartbeat interval.
type HeartbeatData struct {
	AgentID   string  `json:"agent_id"`
	Timestamp float64 `json:"timestamp"`
}

// ScanProgressData mirrors emit_scan_progress's payload shape.
type ScanProgressData struct {
	AgentID   string  `json:"agent_id"`
	Progress  any     `json:"progress"`
	Timestamp float64 `json:"timestamp"`
}

// ScanCompletedData mirrors emit_scan_completed's payload shape.
type ScanCompletedData struct {
	AgentID   string  `json:"agent_id"`
	Results   any     `json:"results"`
	Timestamp float64 `json:"timestamp"`
}

// ScanErrorData mirrors emit_scan_error's payload shape.
type ScanErrorData struct {
	AgentID   string  `json:"agent_id"`
	Error     string  `json:"error"`
	Timestamp float64 `json:"timestamp"`
}

// ScanStatusData mirrors emit_scan_status's payload shape.
type ScanStatusData struct {
	AgentID   string  `json:"agent_id"`
	Status    any     `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

// ScanCommandData is received from the server/GUI to request a scan action.
type ScanCommandData struct {
	Command string   `json:"command"`
	Roots   []string `json:"roots,omitempty"`
	ScanID  string   `json:"scan_id,omitempty"`
}
