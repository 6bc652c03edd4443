// Package report implements component D: aggregation, risk assessment,
// privacy filtering, integrity hashing, and the two report shapes.
package report

// Report is the internal, canonical, hashable shape. It is the single
// source of truth; ToWire projects it into the flattened wire shape, per
// the "two report shapes" design note of spec.md §9.
type Report struct {
	Metadata        Metadata       `json:"metadata"`
	ScanParameters  ScanParameters `json:"scan_parameters"`
	ScanResults     ScanResults    `json:"scan_results"`
	ComplianceNotes []string       `json:"compliance_notes"`
}

type Metadata struct {
	ScanID     string `json:"scan_id"`
	Operator   string `json:"operator"`
	AgentID    string `json:"agent_id"`
	ScanDate   string `json:"scan_date"` // RFC3339
	ConfigHash string `json:"config_hash"`
	ReportHash string `json:"report_hash"`
}

type ScanParameters struct {
	DirectoriesScanned  []string       `json:"directories_scanned"`
	TotalFilesScanned   int            `json:"total_files_scanned"`
	ScanDurationSeconds float64        `json:"scan_duration_seconds"`
	Configuration       map[string]any `json:"configuration"`
}

type ScanResults struct {
	Summary        Summary        `json:"summary"`
	FindingsByType map[string]int `json:"findings_by_type"`
	Findings       []Finding      `json:"findings"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
}

// Summary is the aggregation described in spec.md §4.D: brand, luhn
// validity, confidence bucket (high/med/low at 0.8/0.5), and masked state.
type Summary struct {
	TotalMatches     int            `json:"total_matches"`
	ByBrand          map[string]int `json:"by_brand"`
	LuhnValid        int            `json:"luhn_valid"`
	LuhnInvalid      int            `json:"luhn_invalid"`
	ConfidenceHigh   int            `json:"confidence_high"`
	ConfidenceMedium int            `json:"confidence_medium"`
	ConfidenceLow    int            `json:"confidence_low"`
	Masked           int            `json:"masked"`
	Unmasked         int            `json:"unmasked"`
}

type Finding struct {
	FilePath            string         `json:"file_path"`
	LineNumber          int            `json:"line_number"`
	ColStart            int            `json:"col_start"`
	ColEnd              int            `json:"col_end"`
	CardBrand           string         `json:"card_brand"`
	LuhnValid           bool           `json:"luhn_valid"`
	Confidence          float64        `json:"confidence"`
	IsMasked            bool           `json:"is_masked"`
	Context             FindingContext `json:"context"`
	RemediationPriority string         `json:"remediation_priority"`
	PanData             PanData        `json:"pan_data"`
}

type FindingContext struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// PanData always carries MaskedNumber; Hash is present only when the match
// retained raw digits; FullNumber is present only when full retention is
// both allowed and not overridden by redact_pan.
type PanData struct {
	MaskedNumber string `json:"masked_number"`
	Hash         string `json:"hash,omitempty"`
	FullNumber   string `json:"full_number,omitempty"`
}

type RiskAssessment struct {
	OverallRisk       string   `json:"overall_risk"`
	ComplianceStatus  string   `json:"compliance_status"`
	Recommendations   []string `json:"recommendations"`
}

// WireReport is the flat, server-facing projection of Report, per
// spec.md §3/§6.
type WireReport struct {
	AgentID              string         `json:"agent_id"`
	Operator             string         `json:"operator"`
	ScanDate             string         `json:"scan_date"`
	DirectoriesScanned   []string       `json:"directories_scanned"`
	TotalFilesScanned    int            `json:"total_files_scanned"`
	Findings             []Finding      `json:"findings"`
	ScanConfiguration    map[string]any `json:"scan_configuration"`
	ScanResultsSummary   Summary        `json:"scan_results_summary"`
	Metadata             Metadata       `json:"metadata"`
	ComplianceNotes      []string       `json:"compliance_notes"`
}

// ToWire is the single deterministic projection from the internal shape to
// the wire shape; there is exactly one of these, per spec.md §9.
func ToWire(r *Report) *WireReport {
	return &WireReport{
		AgentID:            r.Metadata.AgentID,
		Operator:           r.Metadata.Operator,
		ScanDate:           r.Metadata.ScanDate,
		DirectoriesScanned: r.ScanParameters.DirectoriesScanned,
		TotalFilesScanned:  r.ScanParameters.TotalFilesScanned,
		Findings:           r.ScanResults.Findings,
		ScanConfiguration:  r.ScanParameters.Configuration,
		ScanResultsSummary: r.ScanResults.Summary,
		Metadata:           r.Metadata,
		ComplianceNotes:    r.ComplianceNotes,
	}
}
