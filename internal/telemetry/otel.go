// Package telemetry provides the ambient OpenTelemetry tracing stack,
// adapted from the teacher's proxy/session span model to spans around scan
// enumeration, detection, and report submission.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"pciagent/internal/config"
)

// Provider manages OpenTelemetry tracing for the agent process.
type Provider struct {
	cfg      config.TelemetryConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider creates a telemetry provider from the agent's telemetry
// configuration, matching the teacher's graceful-degradation-on-disabled
// behavior: a disabled or unrecognized exporter still returns a usable
// no-op tracer rather than an error.
func NewProvider(cfg config.TelemetryConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{cfg: cfg, tracer: otel.Tracer("pci-agent")}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "pci-agent"
	}

	slog.Info("creating telemetry exporter", "type", cfg.Exporter)

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("OTLP exporter initialized", "endpoint", cfg.Endpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			slog.Error("stdout exporter creation failed", "error", err)
			return nil, err
		}
		slog.Info("stdout trace exporter initialized")
	default:
		return &Provider{cfg: cfg, tracer: otel.Tracer("pci-agent")}, nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	return &Provider{cfg: cfg, tracer: tp.Tracer("pci-agent"), provider: tp}, nil
}

func createOTLPExporter(cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	ctx := context.Background()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns the tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown gracefully shuts down the trace provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Enabled returns whether telemetry is actively exporting.
func (p *Provider) Enabled() bool {
	return p.cfg.Enabled && p.provider != nil
}

// Scan span attributes.
const (
	AttrScanID          = "pciagent.scan.id"
	AttrAgentID         = "pciagent.agent.id"
	AttrOperator        = "pciagent.operator"
	AttrRootCount       = "pciagent.roots.count"
	AttrFilesScanned    = "pciagent.files.scanned"
	AttrFilesSkipped    = "pciagent.files.skipped"
	AttrMatchesFound    = "pciagent.matches.found"
	AttrDurationMs      = "pciagent.duration.ms"
	AttrReportHash      = "pciagent.report.hash"
	AttrServerURL       = "pciagent.server.url"
	AttrHTTPStatus      = "http.response.status_code"
)

// StartScanSpan starts the root span for a single scan session.
func (p *Provider) StartScanSpan(ctx context.Context, scanID, operator string, rootCount int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "scan.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrScanID, scanID),
			attribute.String(AttrOperator, operator),
			attribute.Int(AttrRootCount, rootCount),
		),
	)
}

// EndScanSpan ends a scan span, recording final stats and any error.
func (p *Provider) EndScanSpan(span trace.Span, filesScanned, filesSkipped, matchesFound int, durationMs int64, err error) {
	span.SetAttributes(
		attribute.Int(AttrFilesScanned, filesScanned),
		attribute.Int(AttrFilesSkipped, filesSkipped),
		attribute.Int(AttrMatchesFound, matchesFound),
		attribute.Int64(AttrDurationMs, durationMs),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartReportSpan starts a child span for report generation.
func (p *Provider) StartReportSpan(ctx context.Context, scanID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "scan.report.build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(AttrScanID, scanID)),
	)
}

// EndReportSpan ends a report-build span with the resulting report hash.
func (p *Provider) EndReportSpan(span trace.Span, reportHash string, err error) {
	span.SetAttributes(attribute.String(AttrReportHash, reportHash))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartSendSpan starts a child span for the HTTPS report submission.
func (p *Provider) StartSendSpan(ctx context.Context, scanID, serverURL string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "scan.report.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrScanID, scanID),
			attribute.String(AttrServerURL, serverURL),
		),
	)
}

// EndSendSpan ends a send span with the resulting HTTP status, if known.
func (p *Provider) EndSendSpan(span trace.Span, statusCode int, err error) {
	if statusCode != 0 {
		span.SetAttributes(attribute.Int(AttrHTTPStatus, statusCode))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// DefaultConfig returns a default telemetry configuration (disabled).
func DefaultConfig() config.TelemetryConfig {
	return config.TelemetryConfig{Enabled: false, Exporter: "none", ServiceName: "pci-agent"}
}

// ConfigFromEnv builds a telemetry config from standard OTEL_* and
// PCIAGENT_TELEMETRY_* environment variables, independent of config.Load's
// own override pass, for callers constructing a Provider standalone.
func ConfigFromEnv() config.TelemetryConfig {
	cfg := DefaultConfig()

	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Enabled = true
		cfg.Exporter = "otlp"
		cfg.Endpoint = v
		cfg.Insecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}
	if os.Getenv("PCIAGENT_TELEMETRY_ENABLED") == "true" {
		cfg.Enabled = true
	}
	if v := os.Getenv("PCIAGENT_TELEMETRY_EXPORTER"); v != "" {
		cfg.Exporter = v
	}
	if v := os.Getenv("PCIAGENT_TELEMETRY_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}

	return cfg
}

// NoopProvider returns a provider that records nothing, for tests and
// callers that want a Provider without Config plumbing.
func NoopProvider() *Provider {
	return &Provider{cfg: config.TelemetryConfig{Enabled: false}, tracer: otel.Tracer("pci-agent-noop")}
}

// ContextWithTimeout creates a context with timeout for graceful shutdown.
func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
