package report

import (
	"testing"
	"time"

	"pciagent/internal/detector"
	"pciagent/internal/scanner"
)

func sampleMatch() detector.Match {
	return detector.Match{
		FilePath:        "/home/alice/secrets.txt",
		LineNumber:      3,
		ColumnStart:     10,
		ColumnEnd:       26,
		CardBrand:       detector.Visa,
		LuhnValid:       true,
		Confidence:      0.95,
		IsMasked:        false,
		ContextBefore:   "card number:",
		ContextAfter:    "end",
		MaskedRendering: "************1111",
	}
}

func TestBuildReportHashIsStableAndVerifiable(t *testing.T) {
	b := New(false, true)
	rep := b.Build(BuildParams{
		ScanID:   "scan-1",
		Operator: "alice",
		AgentID:  "agent-1",
		Roots:    []string{"/home/alice"},
		Matches:  []detector.Match{sampleMatch()},
		Stats:    scanner.Stats{FilesScanned: 1},
		ScanDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	if rep.Metadata.ReportHash == "" {
		t.Fatal("expected a non-empty report hash")
	}
	if !VerifyHash(rep) {
		t.Error("expected VerifyHash to succeed on an unmodified report")
	}

	rep.ScanResults.Summary.TotalMatches = 999
	if VerifyHash(rep) {
		t.Error("expected VerifyHash to fail after mutating the report")
	}
}

func TestBuildReportRedactsFullPANByDefault(t *testing.T) {
	b := New(false, true)
	rep := b.Build(BuildParams{Matches: []detector.Match{sampleMatch()}})

	pan := rep.ScanResults.Findings[0].PanData
	if pan.FullNumber != "" {
		t.Error("expected FullNumber empty when AllowFullPANRetention is false")
	}
	if pan.Hash != "" {
		t.Error("expected Hash empty when RawDigits was never populated by the detector")
	}
	if pan.MaskedNumber == "" {
		t.Error("expected MaskedNumber to always be populated")
	}
}

func TestBuildReportRedactsFilePath(t *testing.T) {
	b := New(false, true)
	rep := b.Build(BuildParams{Matches: []detector.Match{sampleMatch()}})

	path := rep.ScanResults.Findings[0].FilePath
	if path == "/home/alice/secrets.txt" {
		t.Error("expected home directory segment to be redacted")
	}
}

func TestAssessRiskCritical(t *testing.T) {
	findings := []Finding{{LuhnValid: true, IsMasked: false}}
	risk := assessRisk(findings)
	if risk.OverallRisk != "critical" {
		t.Errorf("expected critical risk, got %s", risk.OverallRisk)
	}
	if risk.ComplianceStatus != "non-compliant" {
		t.Errorf("expected non-compliant status, got %s", risk.ComplianceStatus)
	}
}

func TestRemediationPriority(t *testing.T) {
	tests := []struct {
		name string
		m    detector.Match
		want string
	}{
		{"critical", detector.Match{LuhnValid: true, IsMasked: false, Confidence: 0.9, CardBrand: detector.Visa}, "critical"},
		{"low", detector.Match{LuhnValid: false, IsMasked: true, Confidence: 0.1, CardBrand: detector.Unknown}, "low"},
	}
	for _, tt := range tests {
		if got := remediationPriority(tt.m); got != tt.want {
			t.Errorf("%s: remediationPriority() = %s, want %s", tt.name, got, tt.want)
		}
	}
}
