package telemetry

import (
	"context"
	"testing"

	"pciagent/internal/config"
)

func TestNewProviderDisabledReturnsUsableTracer(t *testing.T) {
	p, err := NewProvider(config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Enabled() {
		t.Error("expected Enabled() false for a disabled config")
	}
	_, span := p.StartScanSpan(context.Background(), "scan-1", "alice", 1)
	p.EndScanSpan(span, 10, 0, 0, 5, nil)
}

func TestNewProviderUnknownExporterDegradesGracefully(t *testing.T) {
	p, err := NewProvider(config.TelemetryConfig{Enabled: true, Exporter: "nonexistent"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Enabled() {
		t.Error("expected Enabled() false when no real exporter was constructed")
	}
}

func TestNewProviderStdoutExporterEnables(t *testing.T) {
	p, err := NewProvider(config.TelemetryConfig{Enabled: true, Exporter: "stdout"})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if !p.Enabled() {
		t.Error("expected Enabled() true for the stdout exporter")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNoopProviderIsDisabled(t *testing.T) {
	p := NoopProvider()
	if p.Enabled() {
		t.Error("expected NoopProvider to report disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on noop provider should be a no-op, got %v", err)
	}
}

func TestConfigFromEnvDefaultsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled {
		t.Error("expected default config to be disabled")
	}
}
