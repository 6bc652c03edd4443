// Package transport implements the HTTPS reporting client: the out-of-scope
// "two-way transport" of spec.md §1 is specified only by message shapes, so
// this package supplies one concrete realization grounded on
// original_source/secure_client.py, carrying over its rate limiting, retry,
// and TLS behavior in idiomatic Go.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"pciagent/internal/audit"
	"pciagent/internal/config"
	"pciagent/internal/telemetry"
)

// Client sends reports to the central management server over HTTPS.
type Client struct {
	cfg        config.ReportingConfig
	httpClient *http.Client
	tel        *telemetry.Provider
	auditLog   *audit.Logger

	mu              sync.Mutex
	windowStart     time.Time
	requestsInWindow int
}

// New builds a Client from the agent's reporting configuration, configuring
// TLS verification, optional CA pinning, and optional mutual-TLS client
// certificates exactly as secure_client.py's _create_secure_session does.
// A nil tel is replaced with a no-op provider. auditLog may be nil, in
// which case the pre-transmission leak gate still blocks the send but
// skips the security_event audit entry.
func New(cfg config.ReportingConfig, tel *telemetry.Provider, auditLog *audit.Logger) (*Client, error) {
	if tel == nil {
		tel = telemetry.NoopProvider()
	}
	tlsConfig := &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS} // #nosec G402 -- operator opt-in, mirrors original's verify_ssl=false escape hatch

	if cfg.VerifyTLS && cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile) // #nosec G304 -- operator-supplied CA path
		if err != nil {
			return nil, fmt.Errorf("reading ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in ca file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		},
		tel:         tel,
		auditLog:    auditLog,
		windowStart: time.Now(),
	}, nil
}

// waitForRateLimit blocks until the request budget for the current 60s
// sliding window has room, mirroring _check_rate_limit's reset-then-sleep
// behavior.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	if now.Sub(c.windowStart) > time.Minute {
		c.windowStart = now
		c.requestsInWindow = 0
	}

	if c.requestsInWindow >= c.cfg.MaxRequestsPerMin {
		sleepFor := time.Minute - now.Sub(c.windowStart)
		c.mu.Unlock()
		if sleepFor > 0 {
			select {
			case <-time.After(sleepFor):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		c.mu.Lock()
		c.windowStart = time.Now()
		c.requestsInWindow = 0
	}

	c.requestsInWindow++
	c.mu.Unlock()
	return nil
}

// doRequest issues one HTTP request with the bounded-retry, doubled-delay
// semantics of _make_request: 401/403 fail immediately (no point retrying an
// auth failure), 429 doubles the retry delay, other non-2xx and network
// errors retry up to cfg.RetryCount times with a flat delay.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if c.cfg.ServerBaseURL == "" {
		return nil, fmt.Errorf("transport: no server url configured")
	}

	url := strings.TrimRight(c.cfg.ServerBaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	delay := time.Duration(c.cfg.RetryDelaySeconds) * time.Second
	if delay <= 0 {
		delay = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryCount; attempt++ {
		if err := c.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "PCI-Compliance-Agent/1.0")
		req.Header.Set("Accept", "application/json")
		if c.cfg.APIToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.cfg.RetryCount {
				if !sleepOrDone(ctx, delay) {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, fmt.Errorf("request to %s failed: %w", url, lastErr)
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("transport: authentication failed (%d)", resp.StatusCode)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("transport: server rate limit exceeded (429)")
			if !sleepOrDone(ctx, delay*2) {
				return nil, ctx.Err()
			}
			continue
		default:
			lastErr = fmt.Errorf("transport: unexpected status %d: %s", resp.StatusCode, string(data))
			if readErr != nil {
				lastErr = fmt.Errorf("transport: unexpected status %d (body unreadable: %w)", resp.StatusCode, readErr)
			}
			if attempt < c.cfg.RetryCount {
				if !sleepOrDone(ctx, delay) {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// TestConnection pings the server's health endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil)
	return err
}

// GetServerInfo retrieves the server's advertised capabilities.
func (c *Client) GetServerInfo(ctx context.Context) (map[string]any, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/info", nil)
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

// RegisterAgent registers this agent's identity with the server.
func (c *Client) RegisterAgent(ctx context.Context, agentData map[string]any) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/agents/register", agentData)
	return err
}

func decodeObject(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return out, nil
}
