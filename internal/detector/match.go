package detector

// Match is a PanMatch: one candidate PAN located within a scanned file.
type Match struct {
	FilePath       string    `json:"file_path"`
	LineNumber     int       `json:"line_number"`
	ColumnStart    int       `json:"column_start"`
	ColumnEnd      int       `json:"column_end"`
	CardBrand      CardBrand `json:"card_brand"`
	LuhnValid      bool      `json:"luhn_valid"`
	Confidence     float64   `json:"confidence"`
	IsMasked       bool      `json:"is_masked"`
	ContextBefore  string    `json:"context_before"`
	ContextAfter   string    `json:"context_after"`
	MaskedRendering string   `json:"masked_rendering"`

	// RawDigits is populated only when the detector was constructed with
	// AllowFullPANRetention; it must otherwise be the empty string
	// everywhere the match is stored, serialized, or transmitted
	// (spec.md §3 invariant).
	RawDigits string `json:"raw_digits,omitempty"`
}
