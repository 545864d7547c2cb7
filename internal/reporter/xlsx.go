package reporter

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"golang-statement-extractor/internal/extractor"
)

const (
	maxSheetName = 31
	defaultSheet = "sheet1"
)

var invalidSheetChars = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// generateXLSXReport writes one sheet per document followed by the
// consolidated sheet of the whole batch
func (rg *ReportGenerator) generateXLSXReport(docs []*extractor.DocumentContext, writer io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("failed to create amount style: %w", err)
	}

	used := map[string]bool{defaultSheet: true}
	used[strings.ToLower(rg.config.ConsolidatedSheet)] = true
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		name := uniqueSheetName(doc.Filename, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, documentRows(doc), header, amount); err != nil {
			return err
		}
	}

	consolidated, err := f.NewSheet(rg.config.ConsolidatedSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", rg.config.ConsolidatedSheet, err)
	}
	if err := writeSheet(f, rg.config.ConsolidatedSheet, consolidatedRows(docs), header, amount); err != nil {
		return err
	}

	if !strings.EqualFold(rg.config.ConsolidatedSheet, defaultSheet) {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}
	if idx, err := f.GetSheetIndex(rg.config.ConsolidatedSheet); err == nil {
		f.SetActiveSheet(idx)
	} else {
		f.SetActiveSheet(consolidated)
	}

	return f.Write(writer)
}

func writeSheet(f *excelize.File, sheet string, rows []Row, header, amount int) error {
	headers := make([]interface{}, len(rowHeaders))
	for i, h := range rowHeaders {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
		return fmt.Errorf("failed to style header of %s: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Document,
			row.Institution,
			row.Date,
			row.Month,
			row.Year,
			row.Description,
			row.Reference,
			row.debit.InexactFloat64(),
			row.credit.InexactFloat64(),
			nil,
			row.Observations,
		}
		if row.balance.Valid {
			values[9] = row.balance.Decimal.InexactFloat64()
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}

	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, "H2", fmt.Sprintf("J%d", len(rows)+1), amount); err != nil {
			return fmt.Errorf("failed to style amounts of %s: %w", sheet, err)
		}
	}
	if err := f.SetColWidth(sheet, "F", "F", 48); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "H", "J", 16)
}

// uniqueSheetName derives a valid sheet name from a filename. Names are
// unique case-insensitively, as spreadsheet applications require.
func uniqueSheetName(filename string, used map[string]bool) string {
	base := strings.TrimSuffix(filename, ".pdf")
	base = strings.TrimSuffix(base, ".PDF")
	base = strings.Trim(invalidSheetChars.Replace(base), "' ")
	if base == "" {
		base = "Documento"
	}
	base = truncateRunes(base, maxSheetName)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func validSheetName(name string) bool {
	if name == "" || utf8.RuneCountInString(name) > maxSheetName {
		return false
	}
	return invalidSheetChars.Replace(name) == name && !strings.HasPrefix(name, "'") && !strings.HasSuffix(name, "'")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
