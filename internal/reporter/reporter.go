// Package reporter renders extracted statements.
//
// The generator writes every document of a batch to one destination in the
// configured format:
//   - Console: human-readable tables for terminal display
//   - JSON: the complete document contexts, for programmatic consumption
//   - CSV: one consolidated row per transaction, for spreadsheet imports
//   - XLSX: one sheet per document plus a consolidated sheet
//
// Rows share the same columns in every tabular format: document,
// institution, fecha, mes, año, detalle, referencia, debito, credito, saldo
// and observaciones.
//
// Usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatXLSX})
//	if err != nil {
//		return err
//	}
//	err = generator.Generate(docs, file)
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/parsers"
)

// OutputFormat selects the report encoding.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid reports whether f names a known encoding
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format cannot be written to a terminal
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// ReportConfig controls what the report contains and how it is laid out
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeSummary  bool `json:"include_summary"`
	IncludeFailures bool `json:"include_failures"`
	IncludeAttempts bool `json:"include_attempts"`

	// console
	MaxConsoleRows   int `json:"max_console_rows"`
	DescriptionWidth int `json:"description_width"`

	// csv
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// xlsx
	ConsolidatedSheet string `json:"consolidated_sheet"`
}

// DefaultReportConfig renders a console table without per-method attempts
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeSummary:    true,
		IncludeFailures:   true,
		IncludeAttempts:   false,
		MaxConsoleRows:    50,
		DescriptionWidth:  40,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
		ConsolidatedSheet: "Consolidado",
	}
}

// Validate checks the format and the layout limits
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.DescriptionWidth < 10 {
		return fmt.Errorf("description width must be at least 10 characters, got %d", c.DescriptionWidth)
	}

	if c.MaxConsoleRows < 0 {
		return fmt.Errorf("max console rows cannot be negative, got %d", c.MaxConsoleRows)
	}

	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '\r') {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}

	if c.Format == FormatXLSX && !validSheetName(c.ConsolidatedSheet) {
		return fmt.Errorf("invalid consolidated sheet name %q", c.ConsolidatedSheet)
	}

	return nil
}

// ReportGenerator generates statement reports in various formats
type ReportGenerator struct {
	config   *ReportConfig
	registry *parsers.Registry
}

// NewReportGenerator validates config and returns a generator; nil means DefaultReportConfig
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config:   config,
		registry: parsers.DefaultRegistry(),
	}, nil
}

// Generate writes the report of a batch of documents to writer
func (rg *ReportGenerator) Generate(docs []*extractor.DocumentContext, writer io.Writer) error {
	if docs == nil {
		return fmt.Errorf("document list cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(docs, writer)
	case FormatJSON:
		return rg.generateJSONReport(docs, writer)
	case FormatCSV:
		return rg.generateCSVReport(docs, writer)
	case FormatXLSX:
		return rg.generateXLSXReport(docs, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

type jsonDocument struct {
	*extractor.DocumentContext
	Attempts []extractor.Attempt `json:"attempts,omitempty"`
	Failures []extractor.Failure `json:"failures,omitempty"`
}

type jsonReport struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Summary     *extractor.BatchSummary `json:"summary,omitempty"`
	Documents   []jsonDocument          `json:"documents"`
}

// generateJSONReport encodes every document, plus the batch summary when enabled
func (rg *ReportGenerator) generateJSONReport(docs []*extractor.DocumentContext, writer io.Writer) error {
	report := jsonReport{
		GeneratedAt: time.Now(),
		Documents:   make([]jsonDocument, 0, len(docs)),
	}
	if rg.config.IncludeSummary {
		report.Summary = extractor.Summarize(docs)
	}

	for _, doc := range docs {
		if doc == nil {
			continue
		}
		out := jsonDocument{DocumentContext: doc}
		if rg.config.IncludeAttempts {
			out.Attempts = doc.Attempts
		}
		if rg.config.IncludeFailures {
			out.Failures = doc.Failures
		}
		report.Documents = append(report.Documents, out)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// currency returns the ISO currency of a document's institution
func (rg *ReportGenerator) currency(doc *extractor.DocumentContext) string {
	if d, ok := rg.registry.Lookup(doc.Institution); ok && d.Currency != "" {
		return d.Currency
	}
	return "ARS"
}

// UpdateConfiguration swaps the config if it validates
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the active config
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
