package detector

import "testing"

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name       string
		luhnValid  bool
		isMasked   bool
		brand      CardBrand
		context    string
		wantApprox float64
	}{
		{"bare unlluhn minor brand", false, false, Unknown, "", 0.30},
		{"luhn valid major brand no keywords", true, false, Visa, "", 0.80},
		{"luhn valid with keywords", true, false, Visa, "credit card payment", 0.95},
		{"masked reduces score", true, true, Visa, "", 0.60},
	}

	for _, tt := range tests {
		got := scoreConfidence(tt.luhnValid, tt.isMasked, tt.brand, tt.context)
		if got < tt.wantApprox-0.001 || got > tt.wantApprox+0.001 {
			t.Errorf("%s: scoreConfidence() = %v, want ~%v", tt.name, got, tt.wantApprox)
		}
	}
}

func TestScoreConfidenceClamped(t *testing.T) {
	if got := scoreConfidence(false, true, Unknown, ""); got < 0 {
		t.Errorf("expected clamped score >= 0, got %v", got)
	}
}
