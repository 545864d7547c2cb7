package normalize

import "regexp"

var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bNRO\.?\s*(\d+)`),
	regexp.MustCompile(`(?i)\bREF\.?\s*(\d+)`),
	regexp.MustCompile(`(?i)\bREFERENCIA\s*(\d+)`),
	regexp.MustCompile(`(?i)\bCOMPROBANTE\s*(\d+)`),
	regexp.MustCompile(`(?i)\bTRANSACCION\s*(\d+)`),
	regexp.MustCompile(`^(\d{4,})\s`),
	regexp.MustCompile(`(\d{8,})`),
}

// ExtractReference finds a voucher or transaction number in a description
func ExtractReference(description string) string {
	text := Unaccent(CleanText(description))
	for _, p := range referencePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
