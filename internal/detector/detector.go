package detector

import (
	"sort"
	"strings"
)

// Detector implements component A: regex + Luhn + masking classification,
// confidence scoring, and safe masking/hashing of matches.
type Detector struct {
	RequireLuhn           bool
	MinConfidence         float64
	ContextWindowChars    int
	ExcludeMasked         bool
	AllowFullPANRetention bool
	ShowLast4Only         bool
}

// New constructs a Detector from the agent's detection and privacy
// configuration sections. Regex compilation happens once at package init
// (brandPatterns, maskedLinePatterns); there is no per-instance compile
// step, so New never fails — the only fatal regex errors are compile-time
// programmer errors caught by `go vet`/tests, not runtime conditions.
func New(requireLuhn bool, minConfidence float64, contextWindowChars int, excludeMasked, allowFullPANRetention, showLast4Only bool) *Detector {
	return &Detector{
		RequireLuhn:           requireLuhn,
		MinConfidence:         minConfidence,
		ContextWindowChars:    contextWindowChars,
		ExcludeMasked:         excludeMasked,
		AllowFullPANRetention: allowFullPANRetention,
		ShowLast4Only:         showLast4Only,
	}
}

const emittedContextChars = 50

// Scan returns the ordered sequence of PanMatch found in buffer, labeled
// with filePath. Invalid UTF-8 is tolerated: Go's range-over-string already
// replaces ill-formed runes with utf8.RuneError rather than panicking, so no
// extra handling is required for the "never throws for content reasons"
// guarantee of spec.md §4.A.
func (d *Detector) Scan(buffer, filePath string) []Match {
	var matches []Match

	lines := strings.Split(buffer, "\n")
	for idx, line := range lines {
		lineNumber := idx + 1

		if d.ExcludeMasked && LineIsMasked(line) {
			continue
		}

		matches = append(matches, d.scanLine(line, lineNumber, filePath)...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].LineNumber != matches[j].LineNumber {
			return matches[i].LineNumber < matches[j].LineNumber
		}
		return matches[i].ColumnStart < matches[j].ColumnStart
	})

	return matches
}

func (d *Detector) scanLine(line string, lineNumber int, filePath string) []Match {
	var out []Match

	for _, bp := range brandPatterns {
		locs := bp.regex.FindAllStringIndex(line, -1)
		for _, loc := range locs {
			start, end := loc[0], loc[1]
			candidate := line[start:end]

			digits := digitsOnly(candidate)
			if len(digits) < 13 || len(digits) > 19 {
				continue
			}

			luhnValid := Luhn(digits)
			if d.RequireLuhn && !luhnValid {
				continue
			}

			wideBefore := windowBefore(line, start, d.ContextWindowChars)
			wideAfter := windowAfter(line, end, d.ContextWindowChars)
			wideContext := wideBefore + candidate + wideAfter

			isMasked := windowIsMasked(wideContext)

			confidence := scoreConfidence(luhnValid, isMasked, bp.brand, wideContext)
			if confidence < d.MinConfidence {
				continue
			}

			rawDigits := ""
			if d.AllowFullPANRetention {
				rawDigits = digits
			}

			out = append(out, Match{
				FilePath:        filePath,
				LineNumber:      lineNumber,
				ColumnStart:     start,
				ColumnEnd:       end,
				CardBrand:       bp.brand,
				LuhnValid:       luhnValid,
				Confidence:      confidence,
				IsMasked:        isMasked,
				ContextBefore:   lastN(wideBefore, emittedContextChars),
				ContextAfter:    firstN(wideAfter, emittedContextChars),
				MaskedRendering: MaskPAN(digits, d.ShowLast4Only),
				RawDigits:       rawDigits,
			})
		}
	}

	return out
}

func digitsOnly(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			b = append(b, c)
		}
	}
	return string(b)
}

func windowBefore(line string, pos, width int) string {
	if width <= 0 {
		return ""
	}
	start := pos - width
	if start < 0 {
		start = 0
	}
	return line[start:pos]
}

func windowAfter(line string, pos, width int) string {
	if width <= 0 {
		return ""
	}
	end := pos + width
	if end > len(line) {
		end = len(line)
	}
	return line[pos:end]
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
