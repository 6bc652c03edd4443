// Package detector implements regex + Luhn candidate extraction, masking
// discrimination, and confidence scoring over text buffers.
package detector

import "regexp"

// CardBrand is a closed enum of recognized payment card brands.
type CardBrand string

const (
	Visa       CardBrand = "VISA"
	Mastercard CardBrand = "MASTERCARD"
	Amex       CardBrand = "AMEX"
	Discover   CardBrand = "DISCOVER"
	Diners     CardBrand = "DINERS"
	JCB        CardBrand = "JCB"
	Unknown    CardBrand = "UNKNOWN"
)

// brandPattern pairs a brand with its word-boundary-anchored recognition
// regex, exactly as specified in spec.md §6.
type brandPattern struct {
	brand CardBrand
	regex *regexp.Regexp
}

// brandPatterns is compiled once at package init; a compile failure here
// would be a programmer error, not a runtime condition, so it panics rather
// than threading an error through every caller.
var brandPatterns = []brandPattern{
	{Visa, regexp.MustCompile(`\b4[0-9]{12}(?:[0-9]{3})?\b`)},
	{Mastercard, regexp.MustCompile(`\b(?:5[1-5][0-9]{14}|2(?:2(?:2[1-9]|[3-9][0-9])|[3-6][0-9]{2}|7(?:[01][0-9]|20))[0-9]{12})\b`)},
	{Amex, regexp.MustCompile(`\b3[47][0-9]{13}\b`)},
	{Discover, regexp.MustCompile(`\b6(?:011|5[0-9]{2})[0-9]{12}\b`)},
	{Diners, regexp.MustCompile(`\b3(?:0[0-5]|[68][0-9])[0-9]{11}\b`)},
	{JCB, regexp.MustCompile(`\b(?:2131|1800|35\d{3})\d{11}\b`)},
}

// majorBrands receive the +0.10 confidence bonus (§4.A).
func isMajorBrand(b CardBrand) bool {
	return b == Visa || b == Mastercard || b == Amex
}
