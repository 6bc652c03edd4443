package transport

import (
	"context"
	"fmt"
	"net/http"

	"pciagent/internal/report"
)

// SendReport posts a WireReport (report.ToWire's projection) to the
// server's /api/reports endpoint. Report shaping itself lives entirely in
// the report package; this method is transport only, but it re-runs the
// SENSITIVE_DATA_LEAK safety gate on the exact bytes about to be
// transmitted before issuing the POST, per spec.md §4.D/§7 and
// secure_client.py's _validate_report-before-_make_request sequence — the
// local report file is already gate-checked at render time, but the wire
// POST is the actual exfiltration boundary and must never skip the check.
func (c *Client) SendReport(ctx context.Context, wire *report.WireReport) error {
	ctx, span := c.tel.StartSendSpan(ctx, wire.Metadata.ScanID, c.cfg.ServerBaseURL)

	if err := report.CheckNoSensitiveData(wire); err != nil {
		if c.auditLog != nil {
			_ = c.auditLog.LogSecurityEvent("critical", fmt.Sprintf("blocked report transmission for scan %s: %s", wire.Metadata.ScanID, err))
		}
		c.tel.EndSendSpan(span, 0, err)
		return err
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/api/reports", wire)

	status := 0
	if err != nil {
		c.tel.EndSendSpan(span, status, err)
		return fmt.Errorf("sending report: %w", err)
	}
	c.tel.EndSendSpan(span, http.StatusOK, nil)
	return nil
}
