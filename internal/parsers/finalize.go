package parsers

import (
	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
)

// Finalize fills defaults, derives month and year, and drops records that
// have neither a valid date nor a non-zero amount.
func Finalize(records []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, 0, len(records))
	for _, t := range records {
		t.Description = normalize.CleanText(t.Description)
		if t.Reference == "" && !t.Boundary {
			t.Reference = normalize.ExtractReference(t.Description)
		}
		t.Debit = t.Debit.Abs()
		t.Credit = t.Credit.Abs()
		t.Month, t.Year = normalize.MonthYear(t.Date)

		if !t.IsValid() {
			continue
		}
		out = append(out, t)
	}
	return out
}
