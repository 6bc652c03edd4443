package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// csvColumns is the exact column order from spec.md §6.
var csvColumns = []string{
	"file_path", "line_number", "card_type", "masked_number",
	"luhn_valid", "confidence_score", "is_masked", "priority",
}

// RenderCSV renders the findings as CSV, applying the same sensitive-data
// safety gate as the JSON wire shape — resolving Open Question 1 of
// spec.md §9 (the original's CSV path omitted the gate; this one does not).
func RenderCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvColumns); err != nil {
		return nil, err
	}

	for _, f := range r.ScanResults.Findings {
		row := []string{
			f.FilePath,
			fmt.Sprintf("%d", f.LineNumber),
			f.CardBrand,
			f.PanData.MaskedNumber,
			fmt.Sprintf("%t", f.LuhnValid),
			fmt.Sprintf("%.3f", f.Confidence),
			fmt.Sprintf("%t", f.IsMasked),
			f.RemediationPriority,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	if err := checkBytes(buf.Bytes()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
