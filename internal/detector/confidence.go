package detector

import "strings"

// paymentKeywords is the fixed keyword set scored at +0.05 each, capped at
// +0.20, per spec.md §4.A.
var paymentKeywords = []string{
	"card", "credit", "debit", "payment", "visa", "mastercard", "amex",
	"discover", "pan", "account", "number", "cvv", "expiry", "expire",
}

// scoreConfidence computes the clamped [0,1] confidence for a candidate,
// given its Luhn validity, masking state, brand, and the case-folded wide
// context window used only for keyword scoring.
func scoreConfidence(luhnValid, isMasked bool, brand CardBrand, wideContext string) float64 {
	score := 0.30
	if luhnValid {
		score += 0.40
	}

	folded := strings.ToLower(wideContext)
	keywordBonus := 0.0
	const perKeyword = 0.05
	const keywordCap = 0.20
	for _, kw := range paymentKeywords {
		if strings.Contains(folded, kw) {
			keywordBonus += perKeyword
			if keywordBonus >= keywordCap {
				keywordBonus = keywordCap
				break
			}
		}
	}
	score += keywordBonus

	if isMasked {
		score -= 0.20
	}
	if isMajorBrand(brand) {
		score += 0.10
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
