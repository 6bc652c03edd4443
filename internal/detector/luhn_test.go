package detector

import "testing"

func TestLuhn(t *testing.T) {
	tests := []struct {
		digits string
		valid  bool
	}{
		{"4111111111111111", true},  // VISA test number
		{"5500000000000004", true},  // MASTERCARD test number
		{"340000000000009", true},   // AMEX test number
		{"4111111111111112", false}, // corrupted checksum
		{"1234567890123456", false},
	}

	for _, tt := range tests {
		if got := Luhn(tt.digits); got != tt.valid {
			t.Errorf("Luhn(%s) = %v, want %v", tt.digits, got, tt.valid)
		}
	}
}

func TestLuhnStrip(t *testing.T) {
	if !LuhnStrip("4111-1111-1111-1111") {
		t.Error("expected dashed VISA test number to pass after stripping")
	}
	if LuhnStrip("not-a-number") {
		t.Error("expected non-numeric input to fail")
	}
}
