package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/normalize"
)

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(docs []*extractor.DocumentContext, writer io.Writer) error {
	fmt.Fprintf(writer, "STATEMENT EXTRACTION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		rg.printDocument(doc, writer)
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeSummary {
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		rg.printSummary(extractor.Summarize(docs), writer)
	}

	return nil
}

func (rg *ReportGenerator) printDocument(doc *extractor.DocumentContext, writer io.Writer) {
	fmt.Fprintf(writer, "=== %s ===\n", doc.Filename)
	fmt.Fprintf(writer, "Institution:  %s\n", orDash(doc.Institution))
	if doc.Parser != "" && doc.Parser != doc.Institution {
		fmt.Fprintf(writer, "Parser:       %s\n", doc.Parser)
	}
	fmt.Fprintf(writer, "Method:       %s (%d pages)\n", doc.Method, doc.Pages)
	if len(doc.Fallbacks) > 0 {
		fmt.Fprintf(writer, "Fallbacks:    %s\n", strings.Join(doc.Fallbacks, ", "))
	}
	fmt.Fprintf(writer, "Transactions: %d\n", len(doc.Transactions))
	if doc.Report.HasIssues() {
		fmt.Fprintf(writer, "Observations: %d\n", doc.Report.Total())
	}

	if rg.config.IncludeAttempts {
		for _, a := range doc.Attempts {
			status := "rejected"
			if a.Accepted {
				status = "accepted"
			}
			if a.Error != "" {
				status = "error: " + a.Error
			}
			fmt.Fprintf(writer, "  - %s %s: %d items in %v, %s\n", a.Strategy, a.Flavor, a.Items, a.Duration.Round(time.Millisecond), status)
		}
	}

	if rg.config.IncludeFailures && len(doc.Failures) > 0 {
		fmt.Fprintf(writer, "Failures:\n")
		for _, f := range doc.Failures {
			fmt.Fprintf(writer, "  - [%s/%s] %s\n", f.Stage, f.Code, f.Message)
		}
	}

	if len(doc.Transactions) > 0 {
		fmt.Fprintf(writer, "\n")
		rg.printTransactionTable(doc, writer)
	}
}

func (rg *ReportGenerator) printTransactionTable(doc *extractor.DocumentContext, writer io.Writer) {
	currency := rg.currency(doc)
	width := rg.config.DescriptionWidth

	fmt.Fprintf(writer, "  %-10s  %-*s  %16s  %16s  %16s\n", "Fecha", width, "Detalle", "Debito", "Credito", "Saldo")
	fmt.Fprintf(writer, "  %s\n", strings.Repeat("-", 10+width+3*16+8))

	rows := documentRows(doc)
	for i, row := range rows {
		if rg.config.MaxConsoleRows > 0 && i >= rg.config.MaxConsoleRows {
			fmt.Fprintf(writer, "  ... and %d more\n", len(rows)-i)
			break
		}

		balance := ""
		if row.balance.Valid {
			balance = normalize.FormatMoney(row.balance.Decimal, currency)
		}
		fmt.Fprintf(writer, "  %-10s  %-*s  %16s  %16s  %16s\n",
			orDash(row.Date),
			width, truncate(row.Description, width),
			moneyOrBlank(row, true, currency),
			moneyOrBlank(row, false, currency),
			balance)
		if row.Observations != "" {
			fmt.Fprintf(writer, "  %10s  ! %s\n", "", row.Observations)
		}
	}
}

func (rg *ReportGenerator) printSummary(summary *extractor.BatchSummary, writer io.Writer) {
	fmt.Fprintf(writer, "Documents:    %d\n", summary.Documents)
	fmt.Fprintf(writer, "  Succeeded:  %d (%.1f%%)\n", summary.Succeeded, percentage(summary.Succeeded, summary.Documents))
	fmt.Fprintf(writer, "  Failed:     %d (%.1f%%)\n", summary.Failed, percentage(summary.Failed, summary.Documents))
	fmt.Fprintf(writer, "Transactions: %d\n", summary.Transactions)
	fmt.Fprintf(writer, "Observations: %d\n", summary.Observations)

	printCounts(writer, "By method", summary.ByMethod)
	printCounts(writer, "By institution", summary.ByInstitution)
	printCounts(writer, "Fallbacks", summary.Fallbacks)

	if summary.Errors != nil && summary.Errors.Total > 0 {
		fmt.Fprintf(writer, "Errors:       %s\n", summary.Errors.Error())
	}
}

func printCounts(writer io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(writer, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(writer, "  %-20s %d\n", k, counts[k])
	}
}

func moneyOrBlank(row Row, debit bool, currency string) string {
	value := row.credit
	if debit {
		value = row.debit
	}
	if value.IsZero() {
		return ""
	}
	return normalize.FormatMoney(value, currency)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}
