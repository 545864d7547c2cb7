package parsers

import (
	"regexp"
	"strings"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
)

const (
	OpeningBalance = "SALDO ANTERIOR"
	ClosingBalance = "SALDO FINAL"
)

var (
	openingPattern = regexp.MustCompile(`SALDO\s+(?:DEL\s+PER[IÍ]ODO\s+ANTERIOR|ANTERIOR)`)
	closingPattern = regexp.MustCompile(`SALDO\s+(?:FINAL|ACTUAL|AL)\b`)
	strictAmount   = regexp.MustCompile(`(-?\d{1,3}(?:\.\d{3})*,\d{2})\s*$`)
)

// boundaryRecord recognizes opening and closing balance lines. matched is
// true for any balance line; the record is nil when the line carries no
// trailing amount.
func boundaryRecord(line string) (record *models.Transaction, matched bool) {
	upper := strings.ToUpper(normalize.Unaccent(line))

	var description string
	switch {
	case openingPattern.MatchString(upper):
		description = OpeningBalance
	case closingPattern.MatchString(upper):
		description = ClosingBalance
	default:
		return nil, false
	}

	m := strictAmount.FindStringSubmatch(upper)
	if m == nil {
		return nil, true
	}
	value, ok := normalize.ParseAmount(m[1])
	if !ok {
		return nil, true
	}
	b := models.NewBoundary(description, value)
	return &b, true
}
