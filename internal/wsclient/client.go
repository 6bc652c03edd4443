package wsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	heartbeatInterval = 30 * time.Second
	maxReconnects     = 5
	reconnectDelay    = 2 * time.Second
)

// ScanCommandHandler is invoked for every scan-command event received.
type ScanCommandHandler func(ScanCommandData)

// Client maintains a WebSocket connection to the management server,
// carrying agent-initiated events out and scan-command/heartbeat-ack
// events in, with bounded auto-reconnect.
type Client struct {
	url     string
	agentID string

	mu      sync.Mutex
	conn    *websocket.Conn
	connected bool

	onScanCommand ScanCommandHandler
}

// New builds a Client for the given WebSocket URL and agent identity.
func New(url, agentID string) *Client {
	return &Client{url: url, agentID: agentID}
}

// SetScanCommandHandler registers the callback for scan-command events.
func (c *Client) SetScanCommandHandler(h ScanCommandHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onScanCommand = h
}

// Run connects and serves the read loop until ctx is cancelled, reconnecting
// up to maxReconnects times with reconnectDelay between attempts, mirroring
// the original SocketIO client's reconnection policy.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			attempts = 0
			continue
		}

		attempts++
		slog.Warn("wsclient: connection lost, reconnecting", "attempt", attempts, "error", err)
		if attempts > maxReconnects {
			return fmt.Errorf("wsclient: exceeded %d reconnect attempts: %w", maxReconnects, err)
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", c.url, err)
	}
	defer conn.CloseNow()

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.connected = false
		c.conn = nil
		c.mu.Unlock()
	}()

	if err := c.send(ctx, "join-agent", JoinAgentData{AgentID: c.agentID}); err != nil {
		return fmt.Errorf("joining agent room: %w", err)
	}

	heartbeatCtx, cancelHeartbeat := context.WithCancel(ctx)
	defer cancelHeartbeat()
	go c.heartbeatLoop(heartbeatCtx)

	return c.readLoop(ctx, conn)
}

func (c *Client) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = c.send(ctx, "heartbeat", HeartbeatData{AgentID: c.agentID, Timestamp: float64(time.Now().Unix())})
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("wsclient: dropping malformed envelope", "error", err)
			continue
		}

		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch env.Event {
	case "scan-command":
		var cmd ScanCommandData
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			slog.Warn("wsclient: malformed scan-command", "error", err)
			return
		}
		c.mu.Lock()
		handler := c.onScanCommand
		c.mu.Unlock()
		if handler != nil {
			handler(cmd)
		}
	case "heartbeat-ack":
		slog.Debug("wsclient: heartbeat acknowledged")
	default:
		slog.Debug("wsclient: unhandled event", "event", env.Event)
	}
}

func (c *Client) send(ctx context.Context, event string, data any) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return fmt.Errorf("wsclient: not connected")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", event, err)
	}

	env := Envelope{Event: event, Data: payload}
	wire, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshaling envelope: %w", err)
	}

	return conn.Write(ctx, websocket.MessageText, wire)
}

// EmitScanProgress sends a scan-progress event.
func (c *Client) EmitScanProgress(ctx context.Context, progress any) error {
	return c.send(ctx, "scan-progress", ScanProgressData{AgentID: c.agentID, Progress: progress, Timestamp: float64(time.Now().Unix())})
}

// EmitScanCompleted sends a scan-completed event.
func (c *Client) EmitScanCompleted(ctx context.Context, results any) error {
	return c.send(ctx, "scan-completed", ScanCompletedData{AgentID: c.agentID, Results: results, Timestamp: float64(time.Now().Unix())})
}

// EmitScanError sends a scan-error event.
func (c *Client) EmitScanError(ctx context.Context, message string) error {
	return c.send(ctx, "scan-error", ScanErrorData{AgentID: c.agentID, Error: message, Timestamp: float64(time.Now().Unix())})
}

// EmitScanStatus sends a scan-status-response event.
func (c *Client) EmitScanStatus(ctx context.Context, status any) error {
	return c.send(ctx, "scan-status-response", ScanStatusData{AgentID: c.agentID, Status: status, Timestamp: float64(time.Now().Unix())})
}

// Connected reports whether the socket is currently live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
