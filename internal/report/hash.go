package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonicalJSON serializes v with sorted keys and stable formatting. It
// round-trips through a generic interface{} because Go's encoding/json
// already sorts map[string]any keys lexicographically when marshaling —
// no third-party canonical-JSON library appears anywhere in the example
// pack, so this stdlib round-trip is the grounded choice (see DESIGN.md).
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// hashReport computes sha256(canonical_json(report with report_hash=""))
// per spec.md §4.D / invariant 5.
func hashReport(r *Report) string {
	clone := *r
	clone.Metadata.ReportHash = ""

	data, err := canonicalJSON(&clone)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyHash recomputes the report hash and reports whether it matches the
// stored metadata.report_hash, for invariant 5 of spec.md §8.
func VerifyHash(r *Report) bool {
	return hashReport(r) == r.Metadata.ReportHash
}
