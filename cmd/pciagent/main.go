// Command pciagent is the CLI entry point for the PCI-DSS compliance
// scanning agent: signal-handling and graceful shutdown via
// signal.NotifyContext, with flag and exit-code conventions matching
// original_source/main.go's CLI dispatch.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pciagent/internal/agent"
	"pciagent/internal/audit"
	"pciagent/internal/config"
	"pciagent/internal/identity"
	"pciagent/internal/report"
	"pciagent/internal/telemetry"
	"pciagent/internal/transport"
	"pciagent/internal/wsclient"
)

const (
	exitClean      = 0
	exitFindings   = 1
	exitInterrupt  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/pciagent.yaml", "path to config file")
	operator := flag.String("operator", "", "operator name (required unless --websocket-mode)")
	directories := flag.String("directories", "", "comma-separated scan roots, overrides config (\"*\" = whole system)")
	output := flag.String("output", "", "path to write the local report file")
	noSend := flag.Bool("no-send", false, "skip sending the report to the server")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	websocketMode := flag.Bool("websocket-mode", false, "stay connected and wait for remote scan commands")
	serverURL := flag.String("server-url", "", "override the configured reporting server URL")
	outputFormat := flag.String("output-format", "json", "report output format: json or csv")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitFindings
	}

	logLevel := slog.LevelInfo
	if *verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *serverURL != "" {
		cfg.Reporting.ServerBaseURL = *serverURL
	}
	if !*websocketMode && *operator == "" {
		slog.Error("--operator is required unless --websocket-mode is set")
		return exitFindings
	}

	agentID := identity.Derive()

	auditLog, err := audit.Open(cfg.Audit.LogPath, cfg.Privacy.EnableDetailedLogging)
	if err != nil {
		slog.Error("failed to open audit log", "error", err)
		return exitFindings
	}
	defer auditLog.Close()

	tp, err := telemetry.NewProvider(cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry initialization failed, continuing without tracing", "error", err)
		tp = telemetry.NoopProvider()
	}
	defer func() {
		shutdownCtx, cancel := telemetry.ContextWithTimeout(5 * time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "error", err)
		}
	}()

	ctrl := agent.New(cfg, agentID, auditLog, tp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *websocketMode {
		if cfg.Reporting.ServerBaseURL != "" {
			registerWithServer(ctx, cfg, tp, auditLog, agentID)
		}
		return runWebSocketMode(ctx, cfg, ctrl, agentID)
	}

	return runOneShot(ctx, cfg, tp, auditLog, ctrl, *operator, *directories, *output, *outputFormat, *noSend)
}

// registerWithServer announces this agent's identity to the management
// server before the first scan, mirroring secure_client.py's registration
// call. Failure here is logged but never blocks local scanning, since the
// server is a reporting sink, not a dependency of the scan itself.
func registerWithServer(ctx context.Context, cfg *config.Config, tp *telemetry.Provider, auditLog *audit.Logger, agentID string) {
	client, err := transport.New(cfg.Reporting, tp, auditLog)
	if err != nil {
		slog.Warn("failed to build transport client for registration", "error", err)
		return
	}
	if err := client.TestConnection(ctx); err != nil {
		slog.Warn("management server unreachable, continuing offline", "error", err)
		return
	}
	info, err := client.GetServerInfo(ctx)
	if err != nil {
		slog.Warn("failed to fetch server info", "error", err)
	} else {
		slog.Info("connected to management server", "server_info", info)
	}
	if err := client.RegisterAgent(ctx, map[string]any{
		"agent_id": agentID,
		"hostname": agentID,
	}); err != nil {
		slog.Warn("agent registration failed", "error", err)
	}
}

func runOneShot(ctx context.Context, cfg *config.Config, tp *telemetry.Provider, auditLog *audit.Logger, ctrl *agent.Controller, operator, directories, output, outputFormat string, noSend bool) int {
	var roots []string
	if directories != "" {
		roots = strings.Split(directories, ",")
	}

	resultCh := make(chan oneShotResult, 1)
	go func() {
		rep, err := ctrl.RunToCompletion(operator, roots)
		resultCh <- oneShotResult{rep: rep, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = ctrl.Stop()
		slog.Info("received interrupt, waiting for in-flight scan to drain")
		res := <-resultCh
		if res.rep != nil {
			writeReport(res.rep, output, outputFormat)
		}
		return exitInterrupt
	case res := <-resultCh:
		if res.err != nil {
			slog.Error("scan failed", "error", res.err)
			return exitFindings
		}
		writeReport(res.rep, output, outputFormat)

		if !noSend && cfg.Reporting.ServerBaseURL != "" {
			sendReport(ctx, cfg, tp, auditLog, res.rep)
		}

		findings := len(res.rep.ScanResults.Findings)
		slog.Info("scan complete", "findings", findings)
		if findings > 0 {
			return exitFindings
		}
		return exitClean
	}
}

type oneShotResult struct {
	rep *report.Report
	err error
}

// writeReport saves the scan result locally. The local file holds the
// internal canonical Report (not the flattened WireReport), per spec.md
// §3/§4.D — the original saves its equivalent full report locally
// (main.py: save_report_locally) with risk_assessment/scan_parameters
// intact, rather than the server-facing projection.
func writeReport(rep *report.Report, output, outputFormat string) {
	if output == "" {
		return
	}

	var data []byte
	var err error
	switch outputFormat {
	case "csv":
		data, err = report.RenderCSV(rep)
	default:
		data, err = report.RenderJSON(rep)
	}
	if err != nil {
		slog.Error("failed to render report", "error", err)
		return
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		slog.Error("failed to write report file", "path", output, "error", err)
	}
}

func sendReport(ctx context.Context, cfg *config.Config, tp *telemetry.Provider, auditLog *audit.Logger, rep *report.Report) {
	client, err := transport.New(cfg.Reporting, tp, auditLog)
	if err != nil {
		slog.Error("failed to build transport client", "error", err)
		return
	}
	wire := report.ToWire(rep)
	if err := client.SendReport(ctx, wire); err != nil {
		slog.Error("failed to send report", "error", err)
		return
	}
	slog.Info("report sent", "scan_id", rep.Metadata.ScanID, "server", cfg.Reporting.ServerBaseURL)
}

func runWebSocketMode(ctx context.Context, cfg *config.Config, ctrl *agent.Controller, agentID string) int {
	if cfg.Reporting.WebSocketURL == "" {
		slog.Error("--websocket-mode requires reporting.websocket_url to be configured")
		return exitFindings
	}

	ws := wsclient.New(cfg.Reporting.WebSocketURL, agentID)
	ws.SetScanCommandHandler(func(cmd wsclient.ScanCommandData) {
		switch cmd.Command {
		case "start":
			if _, err := ctrl.Start("remote", cmd.Roots); err != nil {
				slog.Error("remote start failed", "error", err)
				_ = ws.EmitScanError(ctx, err.Error())
			}
		case "stop":
			if err := ctrl.Stop(); err != nil {
				slog.Error("remote stop failed", "error", err)
			}
		case "status":
			snap, err := ctrl.Status()
			if err == nil {
				_ = ws.EmitScanStatus(ctx, snap)
			}
		}
	})

	go forwardControllerEvents(ctx, ctrl, ws)

	if err := ws.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("websocket client stopped", "error", err)
		return exitFindings
	}
	return exitClean
}

func forwardControllerEvents(ctx context.Context, ctrl *agent.Controller, ws *wsclient.Client) {
	for {
		select {
		case ev, ok := <-ctrl.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case agent.EventProgress:
				_ = ws.EmitScanProgress(ctx, ev.Progress)
			case agent.EventCompleted:
				_ = ws.EmitScanCompleted(ctx, ev.Report)
			case agent.EventError:
				_ = ws.EmitScanError(ctx, fmt.Sprint(ev.Err))
			}
		case <-ctx.Done():
			return
		}
	}
}
