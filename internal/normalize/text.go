package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invisibleReplacer = strings.NewReplacer("\u00a0", " ", "\u200b", "", "\ufeff", "")
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// CleanText removes control and zero-width characters and collapses whitespace
func CleanText(s string) string {
	s = invisibleReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Unaccent strips combining marks: "Débito" becomes "Debito"
func Unaccent(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases, unaccents and cleans s for keyword comparisons
func Fold(s string) string {
	return strings.ToLower(Unaccent(CleanText(s)))
}

// DigitRatio returns the share of digits among the non-space runes of s
func DigitRatio(s string) float64 {
	total, digits := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}
