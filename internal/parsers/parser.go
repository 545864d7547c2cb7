// Package parsers turns raw statement extractions into transaction records.
//
// Every supported institution is described by a Descriptor: an identifier,
// the keywords that identify its documents and a Layout. The Registry holds
// the descriptors in priority order and builds one StatementParser per
// descriptor. A StatementParser understands both input shapes:
//
//   - grids, produced by table extraction, parsed by locating a header row
//     through column synonyms (or by fixed positions when the layout has them)
//   - text lines, produced by the text layer or OCR, parsed by locating a
//     date, collecting amounts and categorizing them by keyword context and
//     sign
//
// Parsers never fail. Input they cannot use yields an empty slice so the
// caller can fall back to another strategy.
//
// Example usage:
//
//	registry := parsers.DefaultRegistry()
//	id := registry.Detect(raw.DetectionText(), filename)
//	records := registry.Parser(id).Parse(raw, filename)
package parsers

import (
	"fmt"
	"strings"

	"golang-statement-extractor/internal/models"
)

// GenericID is the identifier of the fallback parser
const GenericID = "GENERIC"

// Parser is implemented by every institution parser
type Parser interface {
	// Detect reports whether the document looks like one of this parser's statements
	Detect(text, filename string) bool
	// Parse converts a raw extraction into finalized records. It never panics
	// on unexpected input and returns an empty slice instead.
	Parse(raw *models.RawExtraction, filename string) []models.Transaction
}

// Field is a canonical transaction column
type Field string

const (
	FieldDate        Field = "fecha"
	FieldDescription Field = "detalle"
	FieldReference   Field = "referencia"
	FieldDebit       Field = "debito"
	FieldCredit      Field = "credito"
	FieldBalance     Field = "saldo"
	FieldAmount      Field = "importe"
)

// AmountLayout selects how grid amount columns map to debit and credit
type AmountLayout int

const (
	// SeparateColumns reads debit and credit from their own columns
	SeparateColumns AmountLayout = iota
	// SignedAmount reads one signed column: negative is a debit
	SignedAmount
	// SignedColumns reads debit and credit columns whose sign decides direction
	SignedColumns
)

// String returns the layout name
func (a AmountLayout) String() string {
	switch a {
	case SeparateColumns:
		return "separate_columns"
	case SignedAmount:
		return "signed_amount"
	case SignedColumns:
		return "signed_columns"
	default:
		return fmt.Sprintf("amount_layout(%d)", int(a))
	}
}

// GridLayout configures table parsing
type GridLayout struct {
	Amounts AmountLayout `json:"amounts"`
	// Positions maps fields to column indexes used when no header row is
	// found. Negative indexes count from the end of the row.
	Positions map[Field]int `json:"positions,omitempty"`
	// Aliases adds institution specific header synonyms
	Aliases map[Field][]string `json:"aliases,omitempty"`
}

// LineLayout configures text line parsing
type LineLayout struct {
	// SkipPatterns are extra boilerplate fragments, matched on lines without a date
	SkipPatterns   []string `json:"skip_patterns,omitempty"`
	DebitKeywords  []string `json:"debit_keywords,omitempty"`
	CreditKeywords []string `json:"credit_keywords,omitempty"`
	// Boundaries emits opening and closing balance records
	Boundaries bool `json:"boundaries"`
	// Sections enables section awareness: banners of non-movement sections
	// suspend parsing until the next movements header
	Sections bool `json:"sections"`
	// SignedOnly ignores keyword context: the sign alone decides direction
	SignedOnly bool `json:"signed_only"`
}

// Layout is the complete parsing configuration of an institution
type Layout struct {
	Grid GridLayout `json:"grid"`
	Line LineLayout `json:"line"`
}

// Validate checks if the layout is usable
func (l *Layout) Validate() error {
	if l.Grid.Amounts < SeparateColumns || l.Grid.Amounts > SignedColumns {
		return fmt.Errorf("unknown amount layout %d", int(l.Grid.Amounts))
	}

	if len(l.Grid.Positions) > 0 {
		if _, ok := l.Grid.Positions[FieldDate]; !ok {
			return fmt.Errorf("positional layout requires a %s column", FieldDate)
		}
		_, hasDebit := l.Grid.Positions[FieldDebit]
		_, hasCredit := l.Grid.Positions[FieldCredit]
		_, hasAmount := l.Grid.Positions[FieldAmount]
		if !hasAmount && !(hasDebit && hasCredit) {
			return fmt.Errorf("positional layout requires %s or both %s and %s columns", FieldAmount, FieldDebit, FieldCredit)
		}
	}

	for field, aliases := range l.Grid.Aliases {
		for _, alias := range aliases {
			if strings.TrimSpace(alias) == "" {
				return fmt.Errorf("empty alias for field %s", field)
			}
		}
	}

	return nil
}
