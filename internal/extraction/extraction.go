// Package extraction adapts external PDF tools into raw extractions.
//
// Three strategies are available, each behind its own interface so the
// orchestrator can run them in order and tests can replace them:
//   - TableExtractor: table detection through a tabula-compatible CLI
//   - TextExtractor: the PDF text layer through pdftotext, with a pure Go
//     fallback
//   - OCRExtractor: page rendering and OCR through pdftoppm and tesseract
//
// Adapters block until the external tool finishes and honour context
// cancellation. They never interpret money or dates: their output is plain
// grids and text.
package extraction

import (
	"context"
	"time"

	"golang-statement-extractor/internal/models"
)

// Flavor selects the table detection algorithm
type Flavor string

const (
	// FlavorLattice detects tables from ruling lines
	FlavorLattice Flavor = "lattice"
	// FlavorStream detects tables from whitespace alignment
	FlavorStream Flavor = "stream"
)

// Alternate returns the other flavor, used for the single table retry
func (f Flavor) Alternate() Flavor {
	if f == FlavorStream {
		return FlavorLattice
	}
	return FlavorStream
}

// TableExtractor returns the tables of a document as grids. A document
// without tables yields an empty slice and no error.
type TableExtractor interface {
	ExtractTables(ctx context.Context, path string, flavor Flavor) ([]models.Grid, error)
}

// TextExtractor returns the text layer of a document
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (TextResult, error)
}

// OCRExtractor returns the OCR text of the statement pages of a document
type OCRExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]models.PageText, error)
}

// TextResult is the text layer of a document
type TextResult struct {
	Text  string `json:"text"`
	Pages int    `json:"pages"`
}

// Extractors bundles the strategies in the order the orchestrator tries
// them. A nil strategy is skipped.
type Extractors struct {
	Tables TableExtractor
	Text   TextExtractor
	OCR    OCRExtractor
}

// NewExtractors builds the command-line backed strategies described by the
// configuration. OCR is left out when disabled, and every strategy is
// wrapped in a shared result cache when CacheTTL is positive.
func NewExtractors(config *Config, runner CommandRunner) Extractors {
	if config == nil {
		config = DefaultConfig()
	}
	if runner == nil {
		runner = NewExecRunner()
	}

	e := Extractors{
		Tables: NewTabulaExtractor(runner, config.TableCommand),
		Text:   NewPDFTextExtractor(runner, config.TextCommand),
	}
	if config.EnableOCR {
		e.OCR = NewTesseractOCR(runner, config)
	}
	if config.CacheTTL > 0 {
		e = NewCachedExtractor(config.CacheTTL).Wrap(e)
	}
	return e
}

// since formats the elapsed time of an adapter call for logs
func since(start time.Time) string {
	return time.Since(start).Round(time.Millisecond).String()
}
