// Package validator checks extracted statements for internal consistency.
//
// The validator never removes records and never changes money fields. Every
// problem it finds becomes an observation appended to the affected record,
// and a validation error in the returned Report:
//   - a running balance that does not follow from the previous balance and
//     the record's movement
//   - a record whose amounts are all zero
//   - a description made mostly of digits, usually an extraction artifact
//
// Example usage:
//
//	v := validator.New(validator.DefaultConfig())
//	report := v.Annotate(records)
//	if report.HasIssues() {
//		log.WithField("observations", report.Counts).Warn("Statement has inconsistencies")
//	}
package validator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// Kind identifies a class of observation
type Kind string

const (
	KindBalanceMismatch      Kind = "balance_mismatch"
	KindZeroAmounts          Kind = "zero_amounts"
	KindCorruptedDescription Kind = "corrupted_description"
)

var kindCodes = map[Kind]errors.ErrorCode{
	KindBalanceMismatch:      errors.CodeBalanceMismatch,
	KindZeroAmounts:          errors.CodeInvalidAmount,
	KindCorruptedDescription: errors.CodeCorruptedText,
}

const (
	noteZeroAmounts          = "all amounts zero"
	noteCorruptedDescription = "description appears corrupted"
)

// Config holds the validator thresholds
type Config struct {
	// Tolerance is the largest accepted difference between the expected
	// and the reported running balance
	Tolerance decimal.Decimal
	// CorruptionRatio is the digit share above which a description is
	// reported as corrupted
	CorruptionRatio float64
}

// DefaultConfig returns the default validator configuration
func DefaultConfig() *Config {
	return &Config{
		Tolerance:       decimal.New(1, -2),
		CorruptionRatio: 0.7,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("balance tolerance cannot be negative, got %s", c.Tolerance)
	}
	if c.CorruptionRatio <= 0 || c.CorruptionRatio > 1 {
		return fmt.Errorf("corruption ratio must be in (0, 1], got %.2f", c.CorruptionRatio)
	}
	return nil
}

// Report summarizes one Annotate call
type Report struct {
	Checked   int          `json:"checked"`
	Annotated int          `json:"annotated"`
	Counts    map[Kind]int `json:"counts"`

	// Issues holds one validation error per observation, in record order
	Issues []*errors.ExtractorError `json:"-"`
}

// Total returns the number of observations added
func (r Report) Total() int {
	total := 0
	for _, n := range r.Counts {
		total += n
	}
	return total
}

// HasIssues reports whether any observation was added
func (r Report) HasIssues() bool {
	return r.Total() > 0
}

// Err returns the issues as an *errors.ErrorSummary, or nil when there are none
func (r Report) Err() error {
	if len(r.Issues) == 0 {
		return nil
	}
	return errors.NewErrorSummary(r.Issues)
}

// Validator annotates finalized records. It holds no per-document state and
// is safe for concurrent use.
type Validator struct {
	config *Config
	logger logger.Logger
}

// New creates a validator. A nil config selects DefaultConfig.
func New(config *Config) *Validator {
	if config == nil {
		config = DefaultConfig()
	}
	return &Validator{
		config: config,
		logger: logger.WithComponent("validator"),
	}
}

// Annotate appends observations to the records in place and returns a
// summary. Boundary records are not checked and do not break the
// adjacency of the records around them.
func (v *Validator) Annotate(records []models.Transaction) Report {
	report := Report{Counts: make(map[Kind]int)}
	annotated := make(map[int]bool)

	note := func(i int, kind Kind, text, field string, value interface{}) {
		before := len(records[i].Observations)
		records[i].AddObservation(text)
		if len(records[i].Observations) == before {
			return
		}
		report.Counts[kind]++
		report.Issues = append(report.Issues, errors.ValidationError(kindCodes[kind], field, value, nil).
			WithContext("record", i).
			WithContext("date", records[i].Date))
		annotated[i] = true
	}

	prev := -1
	for i := range records {
		t := &records[i]
		if t.Boundary {
			continue
		}
		report.Checked++

		if prev >= 0 {
			if expected, ok := v.expectedBalance(&records[prev], t); ok {
				note(i, KindBalanceMismatch, fmt.Sprintf("balance mismatch (expected: %s, actual: %s)",
					expected.StringFixed(2), t.Balance.Decimal.StringFixed(2)),
					"saldo", t.Balance.Decimal.StringFixed(2))
			}
		}
		if !t.HasAmount() {
			note(i, KindZeroAmounts, noteZeroAmounts, "importe", "0")
		}
		if v.corrupted(t.Description) {
			note(i, KindCorruptedDescription, noteCorruptedDescription, "detalle", t.Description)
		}
		prev = i
	}

	report.Annotated = len(annotated)
	if report.HasIssues() {
		v.logger.WithFields(logger.Fields{
			"checked":      report.Checked,
			"annotated":    report.Annotated,
			"observations": report.Counts,
		}).Debug("Statement annotated")
	}
	return report
}

// expectedBalance returns the balance the current record should carry when
// it disagrees with the reported one beyond the tolerance
func (v *Validator) expectedBalance(prev, cur *models.Transaction) (decimal.Decimal, bool) {
	if !prev.Balance.Valid || !cur.Balance.Valid {
		return decimal.Zero, false
	}
	expected := prev.Balance.Decimal.Add(cur.Credit).Sub(cur.Debit)
	if models.CompareAmountsWithTolerance(expected, cur.Balance.Decimal, v.config.Tolerance) {
		return decimal.Zero, false
	}
	return expected, true
}

func (v *Validator) corrupted(description string) bool {
	if strings.TrimSpace(description) == "" {
		return false
	}
	return normalize.DigitRatio(description) > v.config.CorruptionRatio
}
