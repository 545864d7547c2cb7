package parsers

import (
	"github.com/shopspring/decimal"

	"golang-statement-extractor/internal/models"
)

var balancePhrases = newKeywordSet([]string{
	"saldo anterior",
	"saldo actual",
	"saldo al cierre",
	"saldo del periodo",
	"saldo final",
})

var baseDebitKeywords = []string{
	"debito",
	"cargo",
	"comision",
	"impuesto",
	"transferencia enviada",
	"retiro",
	"pago",
	"automatico",
	"imp.",
	"iva",
	"interes",
	"mantenimiento",
	"ret",
}

var baseCreditKeywords = []string{
	"credito",
	"deposito",
	"transferencia recibida",
	"abono",
	"ingreso",
	"acreditacion",
}

// direction is the side a movement is booked on
type direction int

const (
	bySign direction = iota
	toDebit
	toCredit
)

// categorize assigns amounts found on a line to debit, credit and balance.
// A balance phrase sends the value to the balance. Otherwise one amount is
// the movement, two are movement then balance, and with three or more the
// last is the balance and the largest remaining magnitude is the movement.
func (p *StatementParser) categorize(t *models.Transaction, amounts []decimal.Decimal) {
	if len(amounts) == 0 {
		return
	}
	context := keywordText(t.Description)

	if balancePhrases.any(context) {
		t.SetBalance(amounts[len(amounts)-1])
		return
	}

	var movement decimal.Decimal
	switch n := len(amounts); {
	case n == 1:
		movement = amounts[0]
	case n == 2:
		movement = amounts[0]
		t.SetBalance(amounts[1])
	default:
		t.SetBalance(amounts[n-1])
		movement = amounts[0]
		for _, a := range amounts[1 : n-1] {
			if a.Abs().GreaterThan(movement.Abs()) {
				movement = a
			}
		}
	}

	p.book(t, movement, p.direction(context))
}

// direction classifies a description by its debit and credit keywords.
// Conflicting or missing context falls back to the sign.
func (p *StatementParser) direction(context string) direction {
	if p.descriptor.Layout.Line.SignedOnly {
		return bySign
	}
	debit := p.debit.any(context)
	credit := p.credit.any(context)
	switch {
	case debit && !credit:
		return toDebit
	case credit && !debit:
		return toCredit
	default:
		return bySign
	}
}

func (p *StatementParser) book(t *models.Transaction, movement decimal.Decimal, dir direction) {
	switch dir {
	case toDebit:
		t.Debit = movement.Abs()
	case toCredit:
		t.Credit = movement.Abs()
	default:
		if movement.IsNegative() {
			t.Debit = movement.Abs()
		} else {
			t.Credit = movement
		}
	}
}
