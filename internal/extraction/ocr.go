package extraction

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cloudflare/ahocorasick"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

const methodOCR = "ocr"

// Column names of movements tables, folded
var tableHeaderWords = []string{
	"fecha",
	"concepto",
	"descripcion",
	"detalle",
	"importe",
	"saldo",
	"debito",
	"credito",
	"nro",
	"comprobante",
	"referencia",
}

var (
	headerMatcher = ahocorasick.NewStringMatcher(tableHeaderWords)
	ocrDate       = regexp.MustCompile(`\b[0-3]?\d[/\-][01]?\d[/\-](?:\d{4}|\d{2})\b`)
	ocrAmount     = regexp.MustCompile(`(?:^|[^\w.,])-?\$?\s?\d{1,3}(?:[.,]\d{3})*[.,]\d{2}\b`)
	pageSuffix    = regexp.MustCompile(`-(\d+)\.png$`)
)

// PageScore counts the statement markers found on an OCR page
type PageScore struct {
	Headers int `json:"headers"`
	Dates   int `json:"dates"`
	Amounts int `json:"amounts"`
}

// ScorePage measures how much a page looks like a movements table
func ScorePage(text string) PageScore {
	seen := make(map[int]bool)
	for _, i := range headerMatcher.MatchThreadSafe([]byte(normalize.Fold(text))) {
		seen[i] = true
	}
	return PageScore{
		Headers: len(seen),
		Dates:   len(ocrDate.FindAllStringIndex(text, -1)),
		Amounts: len(ocrAmount.FindAllStringIndex(text, -1)),
	}
}

// Relevant reports whether the page is worth a full resolution pass
func (s PageScore) Relevant() bool {
	return (s.Headers >= 2 && (s.Dates >= 5 || s.Amounts >= 5)) ||
		(s.Dates >= 8 && s.Amounts >= 6) ||
		s.Headers >= 3
}

// TesseractOCR renders pages with pdftoppm and reads them with tesseract in
// two passes: a quick low resolution pass selects the statement pages and a
// full resolution pass reads only those.
type TesseractOCR struct {
	runner        CommandRunner
	renderCommand string
	ocrCommand    string
	language      string
	quickDPI      int
	fullDPI       int
	logger        logger.Logger
}

// NewTesseractOCR creates an OCR extractor
func NewTesseractOCR(runner CommandRunner, config *Config) *TesseractOCR {
	if config == nil {
		config = DefaultConfig()
	}
	return &TesseractOCR{
		runner:        runner,
		renderCommand: config.RenderCommand,
		ocrCommand:    config.OCRCommand,
		language:      config.OCRLanguage,
		quickDPI:      config.QuickDPI,
		fullDPI:       config.FullDPI,
		logger:        logger.WithComponent("ocr"),
	}
}

// ExtractPages implements OCRExtractor. A document without statement pages
// fails with CodeNoRelevantPages after the quick pass.
func (o *TesseractOCR) ExtractPages(ctx context.Context, path string) ([]models.PageText, error) {
	start := time.Now()
	log := o.logger.WithField("file", path)

	dir, err := os.MkdirTemp("", "statement-ocr-*")
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "ocr_workdir", err)
	}
	defer os.RemoveAll(dir)

	images, err := o.render(ctx, path, filepath.Join(dir, "quick"), o.quickDPI, 0)
	if err != nil {
		return nil, err
	}

	var pages []models.PageText
	for _, img := range images {
		text, err := o.read(ctx, path, img.path)
		if err != nil {
			return nil, err
		}
		score := ScorePage(text)
		log.WithFields(logger.Fields{
			"page":     img.page,
			"relevant": score.Relevant(),
			"headers":  score.Headers,
			"dates":    score.Dates,
			"amounts":  score.Amounts,
		}).Debug("Quick OCR pass")
		if score.Relevant() {
			pages = append(pages, models.PageText{Page: img.page, Text: text})
		}
	}

	if len(pages) == 0 {
		log.WithField("pages", len(images)).Warn("No page looks like a statement")
		return nil, errors.ExtractionError(errors.CodeNoRelevantPages, "ocr", path, nil).
			WithContext("pages", len(images))
	}

	for i := range pages {
		prefix := filepath.Join(dir, "full-p"+strconv.Itoa(pages[i].Page))
		full, err := o.render(ctx, path, prefix, o.fullDPI, pages[i].Page)
		if err != nil || len(full) == 0 {
			log.WithError(err).WithField("page", pages[i].Page).Warn("Full resolution render failed; keeping quick pass text")
			continue
		}
		text, err := o.read(ctx, path, full[0].path)
		if err != nil {
			log.WithError(err).WithField("page", pages[i].Page).Warn("Full resolution OCR failed; keeping quick pass text")
			continue
		}
		pages[i].Text = text
	}

	log.WithFields(logger.Fields{
		"pages":    len(images),
		"relevant": len(pages),
		"duration": since(start),
	}).Info("OCR finished")
	return pages, nil
}

type pageImage struct {
	page int
	path string
}

// render rasterizes the document, or a single page when page > 0
func (o *TesseractOCR) render(ctx context.Context, path, prefix string, dpi, page int) ([]pageImage, error) {
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if page > 0 {
		p := strconv.Itoa(page)
		args = append(args, "-f", p, "-l", p)
	}
	args = append(args, path, prefix)

	if _, err := o.runner.Run(ctx, o.renderCommand, args...); err != nil {
		return nil, toolError(methodOCR, path, err)
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "ocr_render", err)
	}
	images := make([]pageImage, 0, len(matches))
	for _, m := range matches {
		sub := pageSuffix.FindStringSubmatch(m)
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		images = append(images, pageImage{page: n, path: m})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].page < images[j].page })
	return images, nil
}

func (o *TesseractOCR) read(ctx context.Context, path, image string) (string, error) {
	out, err := o.runner.Run(ctx, o.ocrCommand, image, "stdout", "--oem", "1", "--psm", "6", "-l", o.language)
	if err != nil {
		return "", toolError(methodOCR, path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
