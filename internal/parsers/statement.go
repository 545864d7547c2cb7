package parsers

import (
	"strings"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
	"golang-statement-extractor/pkg/logger"
)

// yearHintWindow bounds the text scanned for a statement year
const yearHintWindow = 4096

// StatementParser is the configurable parser behind every descriptor
type StatementParser struct {
	descriptor Descriptor
	headers    *headerMatcher
	keywords   *keywordSet
	debit      *keywordSet
	credit     *keywordSet
	skip       *keywordSet
}

// NewStatementParser builds the parser for a descriptor
func NewStatementParser(d Descriptor) *StatementParser {
	return &StatementParser{
		descriptor: d,
		headers:    newHeaderMatcher(d.Layout.Grid.Aliases),
		keywords:   newKeywordSet(d.Keywords),
		debit:      newKeywordSet(baseDebitKeywords, d.Layout.Line.DebitKeywords),
		credit:     newKeywordSet(baseCreditKeywords, d.Layout.Line.CreditKeywords),
		skip:       newKeywordSet(d.Layout.Line.SkipPatterns),
	}
}

// ID returns the institution identifier
func (p *StatementParser) ID() string {
	return p.descriptor.ID
}

// Detect reports whether the text or filename belongs to this institution
func (p *StatementParser) Detect(text, filename string) bool {
	if p.descriptor.ID == GenericID {
		return true
	}
	if p.keywords.any(keywordText(text + " " + filename)) {
		return true
	}
	if p.descriptor.Match != nil {
		upperText, upperName := detectionForms(text, filename)
		return p.descriptor.Match(upperText, upperName)
	}
	return false
}

// Parse converts a raw extraction into finalized records
func (p *StatementParser) Parse(raw *models.RawExtraction, filename string) (records []models.Transaction) {
	log := logger.WithComponent("parser").WithFields(logger.Fields{
		"institution": p.descriptor.ID,
		"file":        filename,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Parser failed; returning no records")
			records = nil
		}
	}()

	if raw.IsEmpty() {
		return nil
	}

	year := YearHint(raw, filename)
	var drafts []models.Transaction
	if raw.IsGrid() {
		drafts = p.parseGrids(raw.Grids, year)
	} else {
		drafts = p.parseLines(raw.Lines, year)
	}

	records = Finalize(drafts)
	log.WithFields(logger.Fields{
		"method":  raw.Method,
		"drafts":  len(drafts),
		"records": len(records),
	}).Debug("Parsed statement")
	return records
}

// YearHint returns the statement year used for day/month dates: the
// filename first, then the head of the document text.
func YearHint(raw *models.RawExtraction, filename string) int {
	if year := normalize.InferYear(filename); year > 0 {
		return year
	}
	text := raw.DetectionText()
	if len(text) > yearHintWindow {
		text = text[:yearHintWindow]
	}
	return normalize.InferYear(text)
}

var filenameSeparators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// detectionForms returns the upper-cased, unaccented text and filename
// handed to custom detection predicates
func detectionForms(text, filename string) (string, string) {
	upperText := strings.ToUpper(normalize.Unaccent(text))
	upperName := strings.ToUpper(normalize.Unaccent(filenameSeparators.Replace(filename)))
	return upperText, upperName
}
