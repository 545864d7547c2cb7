package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dslipak/pdf"

	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

const methodText = "text"

// PDFTextExtractor reads the text layer with pdftotext in layout mode and
// falls back to the pure Go reader when the tool is unavailable or fails
type PDFTextExtractor struct {
	runner  CommandRunner
	command string
	logger  logger.Logger
}

// NewPDFTextExtractor creates a text extractor
func NewPDFTextExtractor(runner CommandRunner, command string) *PDFTextExtractor {
	if command == "" {
		command = DefaultConfig().TextCommand
	}
	return &PDFTextExtractor{
		runner:  runner,
		command: command,
		logger:  logger.WithComponent("pdftext"),
	}
}

// ExtractText implements TextExtractor
func (p *PDFTextExtractor) ExtractText(ctx context.Context, path string) (TextResult, error) {
	start := time.Now()
	log := p.logger.WithField("file", path)

	out, err := p.runner.Run(ctx, p.command, "-layout", path, "-")
	if err == nil && len(bytes.TrimSpace(out)) > 0 {
		text := string(out)
		result := TextResult{
			Text:  strings.ReplaceAll(text, "\f", "\n"),
			Pages: countPages(text),
		}
		log.WithFields(logger.Fields{
			"pages":    result.Pages,
			"chars":    len(result.Text),
			"duration": since(start),
		}).Debug("Text layer extracted")
		return result, nil
	}
	if ctx.Err() != nil {
		return TextResult{}, toolError(methodText, path, ctx.Err())
	}
	if err != nil {
		log.WithError(err).Debug("pdftotext unavailable; using the built-in reader")
	}

	result, ferr := readPlainText(path)
	if ferr != nil {
		if err != nil {
			return TextResult{}, toolError(methodText, path, err)
		}
		return TextResult{}, errors.ExtractionError(errors.CodeToolFailed, methodText, path, ferr)
	}
	log.WithFields(logger.Fields{
		"pages":    result.Pages,
		"chars":    len(result.Text),
		"duration": since(start),
	}).Debug("Text layer extracted with the built-in reader")
	return result, nil
}

// countPages counts the form feeds pdftotext emits after every page
func countPages(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	pages := strings.Count(text, "\f")
	if !strings.HasSuffix(strings.TrimRight(text, "\n "), "\f") {
		pages++
	}
	return pages
}

// readPlainText extracts text with github.com/dslipak/pdf. The reader
// panics on some malformed documents.
func readPlainText(path string) (result TextResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := pdf.Open(path)
	if err != nil {
		return TextResult{}, err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return TextResult{}, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return TextResult{}, err
	}
	return TextResult{Text: buf.String(), Pages: r.NumPage()}, nil
}
