package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalDateLayout is the day/month/year layout every parsed date is rendered in
const CanonicalDateLayout = "02/01/2006"

// dayFirstLayouts are tried in order. Single-digit day and month are accepted.
var dayFirstLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2-1-2006",
	"2-1-06",
	"2.1.2006",
	"2.1.06",
	"2006/1/2",
	"2006-1-2",
	"20060102",
}

var (
	dateNoise    = regexp.MustCompile(`[^0-9/\-.]`)
	dayMonthOnly = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})$`)
	yearPattern  = regexp.MustCompile(`(?:^|[^0-9])((?:19|20)\d{2})(?:[^0-9]|$)`)
)

// NormalizeDate normalizes a date token, inferring a missing year from the
// hint (usually the filename) and falling back to the current year.
func NormalizeDate(raw, hint string) string {
	return NormalizeDateWithYear(raw, InferYear(hint))
}

// NormalizeDateWithYear normalizes a date token to DD/MM/YYYY. A zero year
// means the current year is used for day/month tokens. The cleaned token is
// returned unchanged when no layout matches.
func NormalizeDateWithYear(raw string, year int) string {
	cleaned := strings.Trim(dateNoise.ReplaceAllString(raw, ""), "/-.")
	if cleaned == "" {
		return ""
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(CanonicalDateLayout)
		}
	}

	if m := dayMonthOnly.FindStringSubmatch(cleaned); m != nil {
		if year <= 0 {
			year = time.Now().Year()
		}
		candidate := fmt.Sprintf("%s/%s/%d", m[1], m[2], year)
		if t, err := time.Parse("2/1/2006", candidate); err == nil {
			return t.Format(CanonicalDateLayout)
		}
	}

	return cleaned
}

// IsCanonicalDate reports whether s is a valid DD/MM/YYYY date
func IsCanonicalDate(s string) bool {
	_, err := time.Parse(CanonicalDateLayout, s)
	return err == nil
}

// MonthYear returns the month and year of a canonical date, or zeros
func MonthYear(canonical string) (int, int) {
	t, err := time.Parse(CanonicalDateLayout, canonical)
	if err != nil {
		return 0, 0
	}
	return int(t.Month()), t.Year()
}

// InferYear returns the first plausible four-digit year (1900-2099) found in
// s, or 0 when there is none.
func InferYear(s string) int {
	m := yearPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}
