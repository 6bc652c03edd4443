package report

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"pciagent/internal/detector"
)

// ErrSensitiveDataLeak is raised by the pre-transmission safety gate when a
// serialized report still carries a bare, Luhn-valid digit run, per
// spec.md §4.D/§7. Structural privacy controls should make this a no-op;
// it exists as defense in depth.
var ErrSensitiveDataLeak = errors.New("SENSITIVE_DATA_LEAK: serialized report contains an unmasked PAN-like digit run")

var digitRunPattern = regexp.MustCompile(`\d{13,19}`)

// CheckNoSensitiveData scans the serialized form of v for any bare digit
// run of length 13-19 whose Luhn check passes, excluding runs that look
// like a millennium-prefixed timestamp ("202…"/"201…") to avoid
// false-positiving on embedded Unix millisecond timestamps — a detail
// carried over from the original agent's equivalent gate.
func CheckNoSensitiveData(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return checkBytes(data)
}

func checkBytes(data []byte) error {
	for _, run := range digitRunPattern.FindAllString(string(data), -1) {
		if strings.HasPrefix(run, "202") || strings.HasPrefix(run, "201") {
			continue
		}
		if detector.Luhn(run) {
			return ErrSensitiveDataLeak
		}
	}
	return nil
}

// RenderWireJSON applies the safety gate before serializing the wire shape,
// so that every emission path (HTTPS POST, local JSON file) goes through
// the same check.
func RenderWireJSON(r *Report) ([]byte, error) {
	wire := ToWire(r)
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := checkBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}

// RenderJSON applies the safety gate before serializing the internal,
// canonical report shape — the form saved to the local report file per
// spec.md §3/§4.D, carrying risk_assessment and scan_parameters that the
// flattened WireReport does not.
func RenderJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := checkBytes(data); err != nil {
		return nil, err
	}
	return data, nil
}
