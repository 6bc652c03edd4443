package report

import (
	"math"
	"time"

	"pciagent/internal/detector"
	"pciagent/internal/redact"
	"pciagent/internal/scanner"
)

// Builder implements component D over a set of collaborators injected at
// construction, per the "explicit collaborators, no singletons" design
// note of spec.md §9.
type Builder struct {
	AllowFullPANRetention bool
	RedactPAN             bool
}

// New constructs a Builder from the agent's privacy configuration.
func New(allowFullPANRetention, redactPAN bool) *Builder {
	return &Builder{AllowFullPANRetention: allowFullPANRetention, RedactPAN: redactPAN}
}

// BuildParams bundles the inputs to Build, since a scan session provides
// all of these together.
type BuildParams struct {
	ScanID     string
	Operator   string
	AgentID    string
	ConfigHash string
	Roots      []string
	Config     map[string]any
	Matches    []detector.Match
	Stats      scanner.Stats
	ScanDate   time.Time
}

// Build aggregates matches into a Report, computes risk assessment and
// remediation priorities, sanitizes every path/context string, and embeds
// the integrity hash in metadata.
func (b *Builder) Build(p BuildParams) *Report {
	findings := make([]Finding, 0, len(p.Matches))
	summary := Summary{ByBrand: map[string]int{}}

	for _, m := range p.Matches {
		findings = append(findings, b.projectFinding(m))
		accumulate(&summary, m)
	}

	r := &Report{
		Metadata: Metadata{
			ScanID:     p.ScanID,
			Operator:   p.Operator,
			AgentID:    p.AgentID,
			ScanDate:   p.ScanDate.UTC().Format(time.RFC3339),
			ConfigHash: p.ConfigHash,
			ReportHash: "",
		},
		ScanParameters: ScanParameters{
			DirectoriesScanned:  p.Roots,
			TotalFilesScanned:   p.Stats.FilesScanned,
			ScanDurationSeconds: p.Stats.DurationSeconds,
			Configuration:       p.Config,
		},
		ScanResults: ScanResults{
			Summary:        summary,
			FindingsByType: findingsByType(findings),
			Findings:       findings,
			RiskAssessment: assessRisk(findings),
		},
		ComplianceNotes: complianceNotes(findings),
	}

	r.Metadata.ReportHash = hashReport(r)
	return r
}

func (b *Builder) projectFinding(m detector.Match) Finding {
	pan := PanData{MaskedNumber: m.MaskedRendering}
	if m.RawDigits != "" {
		pan.Hash = detector.HashPAN(m.RawDigits)
		if b.AllowFullPANRetention && !b.RedactPAN {
			pan.FullNumber = m.RawDigits
		}
	}

	return Finding{
		FilePath:            redact.FilePath(m.FilePath),
		LineNumber:          m.LineNumber,
		ColStart:            m.ColumnStart,
		ColEnd:              m.ColumnEnd,
		CardBrand:           string(m.CardBrand),
		LuhnValid:           m.LuhnValid,
		Confidence:          round3(m.Confidence),
		IsMasked:            m.IsMasked,
		Context: FindingContext{
			Before: redact.Context(m.ContextBefore, 200),
			After:  redact.Context(m.ContextAfter, 200),
		},
		RemediationPriority: remediationPriority(m),
		PanData:             pan,
	}
}

// remediationPriority scores a match per spec.md §4.D: +3 luhn_valid, +2
// not is_masked, +2 confidence>0.8, +1 major brand; thresholds 5/3/1.
func remediationPriority(m detector.Match) string {
	score := 0
	if m.LuhnValid {
		score += 3
	}
	if !m.IsMasked {
		score += 2
	}
	if m.Confidence > 0.8 {
		score += 2
	}
	if isMajorBrand(m.CardBrand) {
		score += 1
	}

	switch {
	case score >= 5:
		return "critical"
	case score >= 3:
		return "high"
	case score >= 1:
		return "medium"
	default:
		return "low"
	}
}

func isMajorBrand(b detector.CardBrand) bool {
	return b == detector.Visa || b == detector.Mastercard || b == detector.Amex
}

func accumulate(s *Summary, m detector.Match) {
	s.TotalMatches++
	s.ByBrand[string(m.CardBrand)]++

	if m.LuhnValid {
		s.LuhnValid++
	} else {
		s.LuhnInvalid++
	}

	switch {
	case m.Confidence >= 0.8:
		s.ConfidenceHigh++
	case m.Confidence >= 0.5:
		s.ConfidenceMedium++
	default:
		s.ConfidenceLow++
	}

	if m.IsMasked {
		s.Masked++
	} else {
		s.Unmasked++
	}
}

func findingsByType(findings []Finding) map[string]int {
	out := map[string]int{}
	for _, f := range findings {
		out[f.CardBrand]++
	}
	return out
}

// assessRisk: critical if any unmasked+luhn-valid finding exists; else high
// if matches>10; medium if matches>0; else low (spec.md §4.D).
func assessRisk(findings []Finding) RiskAssessment {
	hasUnmaskedValid := false
	for _, f := range findings {
		if f.LuhnValid && !f.IsMasked {
			hasUnmaskedValid = true
			break
		}
	}

	var risk string
	switch {
	case hasUnmaskedValid:
		risk = "critical"
	case len(findings) > 10:
		risk = "high"
	case len(findings) > 0:
		risk = "medium"
	default:
		risk = "low"
	}

	var status string
	switch risk {
	case "critical":
		status = "non-compliant"
	case "high", "medium":
		status = "review-required"
	default:
		status = "compliant"
	}

	return RiskAssessment{
		OverallRisk:      risk,
		ComplianceStatus: status,
		Recommendations:  recommendations(risk),
	}
}

func recommendations(risk string) []string {
	switch risk {
	case "critical":
		return []string{
			"Remediate unmasked, Luhn-valid PAN exposures immediately.",
			"Restrict access to the affected files pending remediation.",
			"Review data retention policy for the affected systems.",
		}
	case "high":
		return []string{
			"Schedule remediation of detected PAN exposures.",
			"Review masking practices on the affected systems.",
		}
	case "medium":
		return []string{"Review detected findings and confirm masking is effective."}
	default:
		return []string{"No immediate action required."}
	}
}

func complianceNotes(findings []Finding) []string {
	if len(findings) == 0 {
		return []string{"No PAN data detected in scanned files."}
	}
	return []string{
		"PAN data detected. Review findings and remediate per PCI-DSS requirement 3.",
		"Ensure cardholder data is encrypted, masked, or removed from non-payment systems.",
	}
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
