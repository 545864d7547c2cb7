package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical day/month/year representation of a transaction date
const DateLayout = "02/01/2006"

// Transaction represents one movement of a bank statement, or a synthetic
// boundary record carrying the opening or closing balance of the period.
type Transaction struct {
	Date         string              `json:"fecha"`
	Description  string              `json:"detalle"`
	Reference    string              `json:"referencia,omitempty"`
	Debit        decimal.Decimal     `json:"debito"`
	Credit       decimal.Decimal     `json:"credito"`
	Balance      decimal.NullDecimal `json:"saldo"`
	Month        int                 `json:"mes"`
	Year         int                 `json:"anio"`
	Observations []string            `json:"observaciones,omitempty"`
	Boundary     bool                `json:"boundary,omitempty"`
}

// NewBoundary creates an opening or closing balance record
func NewBoundary(description string, balance decimal.Decimal) Transaction {
	return Transaction{
		Description: description,
		Balance:     decimal.NewNullDecimal(balance),
		Boundary:    true,
	}
}

// ParsedDate returns the transaction date when it is in canonical form
func (t *Transaction) ParsedDate() (time.Time, bool) {
	if t.Date == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// HasValidDate reports whether the date is in canonical form
func (t *Transaction) HasValidDate() bool {
	_, ok := t.ParsedDate()
	return ok
}

// HasAmount reports whether any monetary field is non-zero
func (t *Transaction) HasAmount() bool {
	if !t.Debit.IsZero() || !t.Credit.IsZero() {
		return true
	}
	return t.Balance.Valid && !t.Balance.Decimal.IsZero()
}

// IsValid reports whether the record survives finalization.
// A record needs a parsable date or a non-zero amount.
func (t *Transaction) IsValid() bool {
	return t.HasValidDate() || t.HasAmount()
}

// Movement returns the signed movement: credits positive, debits negative
func (t *Transaction) Movement() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// BalanceOrZero returns the balance, or zero when the source row carried none
func (t *Transaction) BalanceOrZero() decimal.Decimal {
	if !t.Balance.Valid {
		return decimal.Zero
	}
	return t.Balance.Decimal
}

// SetBalance records a balance value
func (t *Transaction) SetBalance(d decimal.Decimal) {
	t.Balance = decimal.NewNullDecimal(d)
}

// AddObservation appends an anomaly note. Existing notes are never replaced.
func (t *Transaction) AddObservation(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	for _, existing := range t.Observations {
		if existing == note {
			return
		}
	}
	t.Observations = append(t.Observations, note)
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	balance := "-"
	if t.Balance.Valid {
		balance = t.Balance.Decimal.StringFixed(2)
	}
	return fmt.Sprintf("Transaction{Date: %s, Description: %q, Debit: %s, Credit: %s, Balance: %s}",
		t.Date, t.Description, t.Debit.StringFixed(2), t.Credit.StringFixed(2), balance)
}

// MarshalJSON renders amounts with two fixed decimals
func (t Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	var balance *string
	if t.Balance.Valid {
		s := t.Balance.Decimal.StringFixed(2)
		balance = &s
	}
	return json.Marshal(&struct {
		Debit   string  `json:"debito"`
		Credit  string  `json:"credito"`
		Balance *string `json:"saldo"`
		Alias
	}{
		Debit:   t.Debit.StringFixed(2),
		Credit:  t.Credit.StringFixed(2),
		Balance: balance,
		Alias:   Alias(t),
	})
}

// Equals compares the data fields of two records, ignoring observations
func (t *Transaction) Equals(other *Transaction) bool {
	if other == nil {
		return false
	}
	if t.Balance.Valid != other.Balance.Valid {
		return false
	}
	if t.Balance.Valid && !t.Balance.Decimal.Equal(other.Balance.Decimal) {
		return false
	}
	return t.Date == other.Date &&
		t.Description == other.Description &&
		t.Reference == other.Reference &&
		t.Debit.Equal(other.Debit) &&
		t.Credit.Equal(other.Credit) &&
		t.Month == other.Month &&
		t.Year == other.Year &&
		t.Boundary == other.Boundary
}

// CompareAmountsWithTolerance compares two amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
