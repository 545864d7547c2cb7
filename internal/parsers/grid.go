package parsers

import (
	"strings"

	"github.com/shopspring/decimal"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
)

// parseGrids runs the grid algorithm over every grid. Grids with neither a
// header row nor a positional layout are read row by row as text lines.
func (p *StatementParser) parseGrids(grids []models.Grid, year int) []models.Transaction {
	var records []models.Transaction
	for _, grid := range grids {
		records = append(records, p.parseGrid(grid, year)...)
	}
	return records
}

func (p *StatementParser) parseGrid(grid models.Grid, year int) []models.Transaction {
	if len(grid) == 0 {
		return nil
	}

	start := 0
	headerRow, cols, ok := p.headers.findHeader(grid)
	switch {
	case ok:
		start = headerRow + 1
	case len(p.descriptor.Layout.Grid.Positions) > 0:
		cols = p.descriptor.Layout.Grid.Positions
	default:
		return p.parseLines(gridLines(grid), year)
	}

	var records []models.Transaction
	last := -1
	for _, row := range grid[start:] {
		if blankRow(row) {
			continue
		}

		if p.descriptor.Layout.Line.Boundaries {
			if boundary, matched := boundaryRecord(strings.Join(row, " ")); matched {
				if boundary != nil {
					records = append(records, *boundary)
				}
				last = -1
				continue
			}
		}

		dateCell := cell(row, cols, FieldDate)
		if !isDateLike(dateCell) {
			if last >= 0 && continuationRow(row, cols) {
				text := normalize.CleanText(cell(row, cols, FieldDescription))
				records[last].Description = strings.TrimSpace(records[last].Description + " " + text)
			}
			continue
		}

		record := models.Transaction{
			Date:        normalize.NormalizeDateWithYear(dateCellPattern.FindString(dateCell), year),
			Description: rowDescription(row, cols),
			Reference:   cell(row, cols, FieldReference),
		}
		p.assignAmounts(&record, row, cols)
		if balance, ok := normalize.ParseAmount(cell(row, cols, FieldBalance)); ok {
			record.SetBalance(balance)
		}

		records = append(records, record)
		last = len(records) - 1
	}
	return records
}

// assignAmounts applies the layout's amount rule to one row
func (p *StatementParser) assignAmounts(t *models.Transaction, row []string, cols map[Field]int) {
	_, hasAmount := cols[FieldAmount]
	_, hasDebit := cols[FieldDebit]
	_, hasCredit := cols[FieldCredit]
	layout := p.descriptor.Layout.Grid.Amounts

	if hasAmount && (layout == SignedAmount || (!hasDebit && !hasCredit)) {
		value, ok := normalize.ParseAmount(cell(row, cols, FieldAmount))
		if !ok {
			return
		}
		p.book(t, value, bySign)
		return
	}

	debit, _ := normalize.ParseAmount(cell(row, cols, FieldDebit))
	credit, _ := normalize.ParseAmount(cell(row, cols, FieldCredit))

	if layout == SignedColumns {
		for _, v := range []struct {
			value decimal.Decimal
			dir   direction
		}{{debit, toDebit}, {credit, toCredit}} {
			switch {
			case v.value.IsNegative():
				t.Debit = t.Debit.Add(v.value.Abs())
			case v.value.IsPositive() && v.dir == toDebit:
				t.Debit = t.Debit.Add(v.value)
			case v.value.IsPositive():
				t.Credit = t.Credit.Add(v.value)
			}
		}
		return
	}

	t.Debit = debit.Abs()
	t.Credit = credit.Abs()
}

func cell(row []string, cols map[Field]int, field Field) string {
	idx, ok := cols[field]
	if !ok {
		return ""
	}
	return models.RowCell(row, idx)
}

// rowDescription returns the description column, or the unmapped text
// cells of the row when there is none
func rowDescription(row []string, cols map[Field]int) string {
	if _, ok := cols[FieldDescription]; ok {
		return normalize.CleanText(cell(row, cols, FieldDescription))
	}

	mapped := make(map[int]bool, len(cols))
	for _, idx := range cols {
		if idx < 0 {
			idx += len(row)
		}
		mapped[idx] = true
	}
	var parts []string
	for i, c := range row {
		if mapped[i] || looksLikeData(c) {
			continue
		}
		parts = append(parts, c)
	}
	return normalize.CleanText(strings.Join(parts, " "))
}

// continuationRow reports whether a dateless row only extends the previous
// description
func continuationRow(row []string, cols map[Field]int) bool {
	if strings.TrimSpace(cell(row, cols, FieldDescription)) == "" {
		return false
	}
	for _, field := range []Field{FieldDebit, FieldCredit, FieldBalance, FieldAmount} {
		if normalize.IsAmount(cell(row, cols, field)) {
			return false
		}
	}
	return true
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// gridLines renders grid rows as text lines for the line algorithm
func gridLines(grid models.Grid) []string {
	lines := make([]string, 0, len(grid))
	for _, row := range grid {
		if blankRow(row) {
			continue
		}
		lines = append(lines, strings.Join(row, "  "))
	}
	return lines
}
