package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/pkg/errors"
)

func record(date, description string, debit, credit, balance string) models.Transaction {
	t := models.Transaction{
		Date:        date,
		Description: description,
		Debit:       decimal.RequireFromString(debit),
		Credit:      decimal.RequireFromString(credit),
	}
	if balance != "" {
		t.SetBalance(decimal.RequireFromString(balance))
	}
	return t
}

func TestAnnotate_BalanceContinuity(t *testing.T) {
	tests := []struct {
		name         string
		balance      string
		wantNotes    []string
		wantMismatch int
	}{
		{"consistent", "1200.00", nil, 0},
		{"within tolerance", "1200.01", nil, 0},
		{"mismatch", "1250.00", []string{"balance mismatch (expected: 1200.00, actual: 1250.00)"}, 1},
		{"just beyond tolerance", "1199.98", []string{"balance mismatch (expected: 1200.00, actual: 1199.98)"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []models.Transaction{
				record("01/03/2025", "Deposito", "0", "500", "1000"),
				record("02/03/2025", "Transferencia recibida", "0", "200", tt.balance),
			}

			report := New(nil).Annotate(records)

			assert.Empty(t, records[0].Observations)
			assert.Equal(t, tt.wantNotes, records[1].Observations)
			assert.Equal(t, tt.wantMismatch, report.Counts[KindBalanceMismatch])
			assert.Equal(t, 2, report.Checked)
			assert.True(t, decimal.RequireFromString(tt.balance).Equal(records[1].Balance.Decimal), "balance must not change")
		})
	}
}

func TestAnnotate_SkipsBoundaryAndMissingBalances(t *testing.T) {
	records := []models.Transaction{
		models.NewBoundary("SALDO ANTERIOR", decimal.RequireFromString("999")),
		record("01/03/2025", "Deposito", "0", "100", "1000"),
		models.NewBoundary("SALDO FINAL", decimal.RequireFromString("5")),
		record("02/03/2025", "Pago", "50", "0", "950"),
		record("03/03/2025", "Compra", "20", "0", ""),
		record("04/03/2025", "Compra", "30", "0", "900"),
	}

	report := New(nil).Annotate(records)

	for i, r := range records {
		assert.Empty(t, r.Observations, "record %d", i)
	}
	assert.Equal(t, 4, report.Checked)
	assert.False(t, report.HasIssues())
}

func TestAnnotate_ZeroAmountsAndCorruption(t *testing.T) {
	records := []models.Transaction{
		record("01/03/2025", "Movimiento sin importe", "0", "0", ""),
		record("02/03/2025", "0012 3344 5566 7788", "10", "0", ""),
		record("03/03/2025", "Cuota 1/12", "10", "0", ""),
	}

	report := New(nil).Annotate(records)

	assert.Equal(t, []string{"all amounts zero"}, records[0].Observations)
	assert.Equal(t, []string{"description appears corrupted"}, records[1].Observations)
	assert.Empty(t, records[2].Observations)
	assert.Equal(t, 1, report.Counts[KindZeroAmounts])
	assert.Equal(t, 1, report.Counts[KindCorruptedDescription])
	assert.Equal(t, 2, report.Annotated)
	assert.Equal(t, 2, report.Total())
}

func TestAnnotate_IsIdempotent(t *testing.T) {
	records := []models.Transaction{
		record("01/03/2025", "Deposito", "0", "100", "1000"),
		record("02/03/2025", "Pago", "0", "0", "1250"),
	}
	v := New(nil)

	first := v.Annotate(records)
	second := v.Annotate(records)

	require.True(t, first.HasIssues())
	assert.False(t, second.HasIssues())
	assert.Len(t, records[1].Observations, 1)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"zero tolerance", Config{Tolerance: decimal.Zero, CorruptionRatio: 0.5}, false},
		{"negative tolerance", Config{Tolerance: decimal.NewFromInt(-1), CorruptionRatio: 0.5}, true},
		{"zero ratio", Config{Tolerance: decimal.Zero}, true},
		{"ratio above one", Config{Tolerance: decimal.Zero, CorruptionRatio: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnnotate_Issues(t *testing.T) {
	records := []models.Transaction{
		record("01/03/2025", "Deposito", "0", "500", "1000"),
		record("02/03/2025", "Transferencia recibida", "0", "200", "1250"),
		record("03/03/2025", "Movimiento sin importe", "0", "0", ""),
	}
	v := New(nil)

	report := v.Annotate(records)

	require.Len(t, report.Issues, 2)
	assert.Equal(t, errors.CodeBalanceMismatch, report.Issues[0].Code)
	assert.Equal(t, 1, report.Issues[0].Context["record"])
	assert.Equal(t, "1250.00", report.Issues[0].Context["value"])
	assert.Equal(t, errors.CodeInvalidAmount, report.Issues[1].Code)
	assert.Equal(t, errors.CategoryValidation, report.Issues[1].Category)

	summary, ok := report.Err().(*errors.ErrorSummary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Total)
	assert.True(t, summary.HasCode(errors.CodeBalanceMismatch))
	assert.Equal(t, 3, summary.GetExitCode())

	assert.NoError(t, v.Annotate(records).Err(), "observations are not added twice")
}
