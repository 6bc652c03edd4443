package wsclient

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNewClientStartsDisconnected(t *testing.T) {
	c := New("ws://example.invalid/socket", "agent-1")
	if c.Connected() {
		t.Error("expected a freshly constructed client to report disconnected")
	}
}

func TestSendFailsWhenNotConnected(t *testing.T) {
	c := New("ws://example.invalid/socket", "agent-1")
	if err := c.send(context.Background(), "heartbeat", HeartbeatData{AgentID: "agent-1"}); err == nil {
		t.Error("expected send to fail before a connection is established")
	}
}

func TestDispatchInvokesScanCommandHandler(t *testing.T) {
	c := New("ws://example.invalid/socket", "agent-1")

	var got ScanCommandData
	called := false
	c.SetScanCommandHandler(func(cmd ScanCommandData) {
		called = true
		got = cmd
	})

	data, err := json.Marshal(ScanCommandData{Command: "start", Roots: []string{"/data"}, ScanID: "scan-9"})
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	c.dispatch(Envelope{Event: "scan-command", Data: data})

	if !called {
		t.Fatal("expected scan-command handler to be invoked")
	}
	if got.Command != "start" || got.ScanID != "scan-9" {
		t.Errorf("unexpected dispatched command: %+v", got)
	}
}

func TestDispatchIgnoresUnknownEvent(t *testing.T) {
	c := New("ws://example.invalid/socket", "agent-1")
	c.SetScanCommandHandler(func(ScanCommandData) {
		t.Error("handler should not fire for an unrelated event")
	})
	c.dispatch(Envelope{Event: "something-else", Data: json.RawMessage(`{}`)})
}

func TestEnvelopeRoundTrips(t *testing.T) {
	payload, err := json.Marshal(HeartbeatData{AgentID: "agent-1", Timestamp: 42})
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	env := Envelope{Event: "heartbeat", Data: payload}

	wire, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshaling envelope: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal(wire, &decoded); err != nil {
		t.Fatalf("unmarshaling envelope: %v", err)
	}
	if decoded.Event != "heartbeat" {
		t.Errorf("expected event heartbeat, got %s", decoded.Event)
	}

	var hb HeartbeatData
	if err := json.Unmarshal(decoded.Data, &hb); err != nil {
		t.Fatalf("unmarshaling heartbeat data: %v", err)
	}
	if hb.AgentID != "agent-1" || hb.Timestamp != 42 {
		t.Errorf("unexpected heartbeat data: %+v", hb)
	}
}
