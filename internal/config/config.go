package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the PCI compliance agent.
type Config struct {
	Detection DetectionConfig `yaml:"detection"`
	Agent     AgentConfig     `yaml:"agent"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Reporting ReportingConfig `yaml:"reporting"`
	Audit     AuditConfig     `yaml:"audit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DetectionConfig controls the Detector (component A).
type DetectionConfig struct {
	RequireLuhn        bool    `yaml:"require_luhn"`
	MinConfidence      float64 `yaml:"min_confidence"`
	ContextWindowChars int     `yaml:"context_window_chars"`
	ExcludeMasked      bool    `yaml:"exclude_masked"`
}

// AgentConfig controls the Walker/Reader and Scan Orchestrator (components B, C).
type AgentConfig struct {
	ScanRoots          []string `yaml:"scan_roots"`
	ExcludeGlobs       []string `yaml:"exclude_globs"`
	MaxFileSizeBytes   int64    `yaml:"max_file_size_bytes"`
	ExtensionAllowlist []string `yaml:"extension_allowlist"`
	MaxFiles           int      `yaml:"max_files"` // 0 = unbounded
	MaxDepth           int      `yaml:"max_depth"` // 0 = unbounded
	Concurrency        int      `yaml:"concurrency"`
	ScanTextFiles      bool     `yaml:"scan_text_files"`
	ScanBinaryFiles    bool     `yaml:"scan_binary_files"`
}

// PrivacyConfig gates raw-PAN handling throughout the pipeline.
type PrivacyConfig struct {
	AllowFullPANRetention bool `yaml:"allow_full_pan_retention"`
	RedactPAN             bool `yaml:"redact_pan"`
	ShowLast4Only         bool `yaml:"show_last4_only"`
	HashSensitiveData     bool `yaml:"hash_sensitive_data"`
	EnableDetailedLogging bool `yaml:"enable_detailed_logging"`
}

// ReportingConfig controls the transport collaborators (§6).
type ReportingConfig struct {
	ServerBaseURL      string `yaml:"server_base_url"`
	WebSocketURL       string `yaml:"websocket_url"`
	APIToken           string `yaml:"api_token"`
	CAFile             string `yaml:"ca_file"`
	ClientCertFile     string `yaml:"client_cert_file"`
	ClientKeyFile      string `yaml:"client_key_file"`
	VerifyTLS          bool   `yaml:"verify_tls"`
	RetryCount         int    `yaml:"retry_count"`
	RetryDelaySeconds  int    `yaml:"retry_delay_seconds"`
	MaxRequestsPerMin  int    `yaml:"max_requests_per_minute"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

// AuditConfig controls the Audit Log (component E).
type AuditConfig struct {
	LogPath string `yaml:"log_path"`
}

// LoggingConfig controls process-level structured logging.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// TelemetryConfig controls the ambient OpenTelemetry tracing stack.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"` // "otlp", "stdout", or "none"
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Load reads and parses the configuration file, falling back to defaults
// when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path) // #nosec G304 -- config path from trusted CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			if verr := cfg.validate(); verr != nil {
				return nil, fmt.Errorf("validating config: %w", verr)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config with sensible default values, matching the
// original agent's documented defaults.
func defaults() *Config {
	return &Config{
		Detection: DetectionConfig{
			RequireLuhn:        true,
			MinConfidence:      0.70,
			ContextWindowChars: 100,
			ExcludeMasked:      true,
		},
		Agent: AgentConfig{
			ScanRoots:          []string{},
			ExcludeGlobs:       []string{"*/.git/*", "*/node_modules/*", "*/.venv/*"},
			MaxFileSizeBytes:   10 * 1024 * 1024, // 10MB
			ExtensionAllowlist: []string{},
			MaxFiles:           0,
			MaxDepth:           0,
			Concurrency:        4,
			ScanTextFiles:      true,
			ScanBinaryFiles:    false,
		},
		Privacy: PrivacyConfig{
			AllowFullPANRetention: false,
			RedactPAN:             true,
			ShowLast4Only:         true,
			HashSensitiveData:     true,
			EnableDetailedLogging: false,
		},
		Reporting: ReportingConfig{
			VerifyTLS:         true,
			RetryCount:        3,
			RetryDelaySeconds: 5,
			MaxRequestsPerMin: 60,
			TimeoutSeconds:    30,
		},
		Audit: AuditConfig{
			LogPath: "logs/pci_audit.log",
		},
		Logging: LoggingConfig{
			Format: "json",
			Level:  "info",
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Exporter:    "none",
			ServiceName: "pci-agent",
			Endpoint:    "localhost:4317",
			Insecure:    true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides, prefixed
// PCIAGENT_, matching the layered override pipeline of config.Load.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PCIAGENT_SERVER_URL"); v != "" {
		c.Reporting.ServerBaseURL = v
	}
	if v := os.Getenv("PCIAGENT_WEBSOCKET_URL"); v != "" {
		c.Reporting.WebSocketURL = v
	}
	if v := os.Getenv("PCIAGENT_API_TOKEN"); v != "" {
		c.Reporting.APIToken = v
	}
	if v := os.Getenv("PCIAGENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PCIAGENT_AUDIT_LOG_PATH"); v != "" {
		c.Audit.LogPath = v
	}
	if v := os.Getenv("PCIAGENT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Agent.Concurrency = n
		}
	}
	if os.Getenv("PCIAGENT_ALLOW_FULL_PAN_RETENTION") == "true" {
		c.Privacy.AllowFullPANRetention = true
	}

	// Also support standard OTEL env vars, matching the teacher's convention.
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Enabled = true
		c.Telemetry.Exporter = "otlp"
		c.Telemetry.Endpoint = v
	}
	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		c.Telemetry.Insecure = true
	}
	if v := os.Getenv("PCIAGENT_TELEMETRY_ENABLED"); v == "true" {
		c.Telemetry.Enabled = true
	}
}

// validate checks that the configuration satisfies the agent's required
// invariants. Missing required sections or malformed typed fields fail here
// rather than silently producing undefined behavior downstream.
func (c *Config) validate() error {
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.min_confidence must be in [0,1], got %v", c.Detection.MinConfidence)
	}
	if c.Agent.Concurrency <= 0 {
		return fmt.Errorf("agent.concurrency must be positive")
	}
	if c.Agent.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("agent.max_file_size_bytes must be positive")
	}
	if c.Reporting.RetryCount < 0 {
		return fmt.Errorf("reporting.retry_count must not be negative")
	}
	if c.Reporting.MaxRequestsPerMin <= 0 {
		return fmt.Errorf("reporting.max_requests_per_minute must be positive")
	}
	return nil
}

// Hash returns a stable short hash of the configuration, used as
// ScanSession.config_hash.
func (c *Config) Hash() string {
	return hashConfig(c)
}

// NormalizedRoots trims whitespace and drops empty entries from the
// configured scan roots, preserving caller-supplied overrides.
func NormalizedRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
