package reporter

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/models"
)

// Row is one transaction in the tabular outputs
type Row struct {
	Document     string `csv:"document"`
	Institution  string `csv:"institution"`
	Date         string `csv:"fecha"`
	Month        string `csv:"mes"`
	Year         string `csv:"año"`
	Description  string `csv:"detalle"`
	Reference    string `csv:"referencia"`
	Debit        string `csv:"debito"`
	Credit       string `csv:"credito"`
	Balance      string `csv:"saldo"`
	Observations string `csv:"observaciones"`

	debit   decimal.Decimal     `csv:"-"`
	credit  decimal.Decimal     `csv:"-"`
	balance decimal.NullDecimal `csv:"-"`
}

var rowHeaders = []string{
	"document", "institution", "fecha", "mes", "año", "detalle",
	"referencia", "debito", "credito", "saldo", "observaciones",
}

func newRow(doc *extractor.DocumentContext, t models.Transaction) Row {
	row := Row{
		Document:     doc.Filename,
		Institution:  doc.Institution,
		Date:         t.Date,
		Description:  t.Description,
		Reference:    t.Reference,
		Debit:        t.Debit.StringFixed(2),
		Credit:       t.Credit.StringFixed(2),
		Observations: strings.Join(t.Observations, "; "),
		debit:        t.Debit,
		credit:       t.Credit,
		balance:      t.Balance,
	}
	if t.Month > 0 {
		row.Month = strconv.Itoa(t.Month)
	}
	if t.Year > 0 {
		row.Year = strconv.Itoa(t.Year)
	}
	if t.Balance.Valid {
		row.Balance = t.Balance.Decimal.StringFixed(2)
	}
	return row
}

// documentRows returns the rows of one document in record order
func documentRows(doc *extractor.DocumentContext) []Row {
	rows := make([]Row, 0, len(doc.Transactions))
	for _, t := range doc.Transactions {
		rows = append(rows, newRow(doc, t))
	}
	return rows
}

// consolidatedRows returns the rows of every document in input order
func consolidatedRows(docs []*extractor.DocumentContext) []Row {
	var rows []Row
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		rows = append(rows, documentRows(doc)...)
	}
	return rows
}

// generateCSVReport writes the consolidated rows of the batch
func (rg *ReportGenerator) generateCSVReport(docs []*extractor.DocumentContext, writer io.Writer) error {
	rows := consolidatedRows(docs)

	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	out := gocsv.NewSafeCSVWriter(csvWriter)

	if len(rows) == 0 {
		if rg.config.CSVHeaders {
			if err := out.Write(rowHeaders); err != nil {
				return err
			}
		}
		out.Flush()
		return out.Error()
	}

	if rg.config.CSVHeaders {
		return gocsv.MarshalCSV(rows, out)
	}
	return gocsv.MarshalCSVWithoutHeaders(rows, out)
}
