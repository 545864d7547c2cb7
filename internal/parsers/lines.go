package parsers

import (
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
)

var (
	fullDatePattern  = regexp.MustCompile(`\b(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{2,4})\b`)
	leadingShortDate = regexp.MustCompile(`^\s*(\d{1,2})[/\-](\d{1,2})\b`)
	valueDatePattern = regexp.MustCompile(`\b\d{2}[/\-]\d{2}\b`)
	dateCellPattern  = regexp.MustCompile(`^\s*\d{1,2}[/\-.]\d{1,2}(?:[/\-.]\d{2,4})?\b`)
	pageNumberLine   = regexp.MustCompile(`(?i)^\s*(?:p[aá]g(?:ina)?\.?\s*)?\d{1,3}\s*(?:(?:/|de)\s*\d{1,3})?\s*$`)
)

// amountPatterns are tried in priority order. The negative-suffix form comes
// first so that "1.234,56-" is never read as a positive amount.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})*[.,]\d{2}-`),
	regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})*[.,]\d{2}`),
	regexp.MustCompile(`\d+[.,]\d{2}`),
}

// Fixed boilerplate, matched on every line
var alwaysSkip = newKeywordSet([]string{
	"pagina",
	"hoja",
	"estimado cliente",
	"cbu",
	"movimientos pendientes",
	"estado de cuenta",
	"resumen de cuenta",
})

// Account metadata, matched on lines without a date
var datelessSkip = newKeywordSet([]string{
	"cuenta corriente",
	"caja de ahorro",
	"total movimientos",
})

// Banners of statement sections that hold no movements
var sectionBanners = newKeywordSet([]string{
	"debitos automaticos",
	"transferencias recibidas",
	"transferencias enviadas",
	"retenciones",
	"resumen",
})

type span struct {
	start, end int
}

type amountToken struct {
	span
	value decimal.Decimal
}

// isDateLike reports whether a grid cell starts with a date
func isDateLike(cell string) bool {
	return dateCellPattern.MatchString(cell)
}

// findDate locates the date that starts a record: the first full date of
// the line, or a day/month token at the start of the line.
func findDate(line string) (string, span, bool) {
	if loc := fullDatePattern.FindStringIndex(line); loc != nil {
		return line[loc[0]:loc[1]], span{loc[0], loc[1]}, true
	}
	if loc := leadingShortDate.FindStringSubmatchIndex(line); loc != nil {
		return line[loc[2]:loc[1]], span{loc[2], loc[1]}, true
	}
	return "", span{}, false
}

// findAmounts returns the monetary tokens of s in reading order
func findAmounts(s string) []amountToken {
	var accepted []amountToken
	for i, pattern := range amountPatterns {
		for _, loc := range pattern.FindAllStringIndex(s, -1) {
			start, end := loc[0], loc[1]
			if !standsAlone(s, start, end) || overlaps(accepted, start, end) {
				continue
			}
			if i > 0 {
				if prefixed := signPrefix(s, start); !overlaps(accepted, prefixed, end) {
					start = prefixed
				}
			}
			value, ok := normalize.ParseAmount(s[start:end])
			if !ok {
				continue
			}
			accepted = append(accepted, amountToken{span: span{start, end}, value: value})
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

// standsAlone rejects matches that are the tail of a longer number
func standsAlone(s string, start, end int) bool {
	if start > 0 {
		prev := s[start-1]
		if isDigit(prev) {
			return false
		}
		if (prev == '.' || prev == ',') && start > 1 && isDigit(s[start-2]) {
			return false
		}
	}
	if end < len(s) && isDigit(s[end]) {
		return false
	}
	return true
}

// signPrefix extends an amount backwards over a currency sign and a
// leading minus ("-$ 1.000,00"). A minus glued to a digit is not a sign.
func signPrefix(s string, start int) int {
	j := skipSpacesBack(s, start)
	if j > 0 && s[j-1] == '$' {
		j = skipSpacesBack(s, j-1)
		start = j
	}
	if j > 0 && s[j-1] == '-' && (j == 1 || !isDigit(s[j-2])) {
		start = j - 1
	}
	return start
}

func skipSpacesBack(s string, i int) int {
	for i > 0 && s[i-1] == ' ' {
		i--
	}
	return i
}

func overlaps(tokens []amountToken, start, end int) bool {
	for _, t := range tokens {
		if start < t.end && t.start < end {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// cut removes the given spans from s
func cut(s string, spans ...span) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })
	for _, sp := range spans {
		if sp.start < 0 || sp.end > len(s) || sp.start >= sp.end {
			continue
		}
		s = s[:sp.start] + " " + s[sp.end:]
	}
	return s
}

func amountValues(tokens []amountToken) []decimal.Decimal {
	values := make([]decimal.Decimal, len(tokens))
	for i, t := range tokens {
		values[i] = t.value
	}
	return values
}

func amountSpans(tokens []amountToken) []span {
	spans := make([]span, len(tokens))
	for i, t := range tokens {
		spans[i] = t.span
	}
	return spans
}

// lineState is the per-document state of the line algorithm. active is
// false between a section banner and the next header; it only gates
// dateless lines, dated lines are always parsed.
type lineState struct {
	records    []models.Transaction
	current    *models.Transaction
	active     bool
	headerSeen bool
}

func (s *lineState) flush() {
	if s.current != nil {
		s.records = append(s.records, *s.current)
		s.current = nil
	}
}

// parseLines runs the line algorithm over text lines
func (p *StatementParser) parseLines(lines []string, year int) []models.Transaction {
	state := &lineState{active: true}
	layout := p.descriptor.Layout.Line

	for _, raw := range lines {
		line := normalize.CleanText(raw)
		if line == "" || pageNumberLine.MatchString(line) {
			continue
		}
		haystack := keywordText(line)
		if alwaysSkip.any(haystack) {
			continue
		}

		if layout.Boundaries {
			if boundary, matched := boundaryRecord(line); matched {
				state.flush()
				if boundary != nil {
					state.records = append(state.records, *boundary)
				}
				continue
			}
		}

		token, dateSpan, hasDate := findDate(line)
		if !hasDate {
			p.handleDateless(state, line, haystack)
			continue
		}
		state.flush()
		rest := cut(line, dateSpan)
		rest = valueDatePattern.ReplaceAllString(rest, " ")
		amounts := findAmounts(rest)

		record := &models.Transaction{
			Date:        normalize.NormalizeDateWithYear(token, year),
			Description: normalize.CleanText(cut(rest, amountSpans(amounts)...)),
		}
		p.categorize(record, amountValues(amounts))
		state.current = record
	}

	state.flush()
	return state.records
}

// handleDateless deals with lines that do not start a record: headers,
// banners, balance lines and description continuations.
func (p *StatementParser) handleDateless(state *lineState, line, haystack string) {
	amounts := findAmounts(line)

	if len(amounts) == 0 {
		if p.headers.isHeaderLine(line) {
			state.flush()
			state.active = true
			state.headerSeen = true
			return
		}
		if p.descriptor.Layout.Line.Sections && state.headerSeen && sectionBanners.any(haystack) {
			state.flush()
			state.active = false
			return
		}
	}
	if datelessSkip.any(haystack) || p.skip.any(haystack) || !state.active {
		return
	}

	if len(amounts) > 0 && balancePhrases.any(haystack) {
		state.flush()
		record := &models.Transaction{
			Description: normalize.CleanText(cut(line, amountSpans(amounts)...)),
		}
		p.categorize(record, amountValues(amounts))
		state.records = append(state.records, *record)
		return
	}

	if state.current == nil {
		return
	}

	text := normalize.CleanText(cut(line, amountSpans(amounts)...))
	if len(amounts) > 0 {
		if state.current.HasAmount() {
			return
		}
		if text != "" {
			state.current.Description = strings.TrimSpace(state.current.Description + " " + text)
		}
		p.categorize(state.current, amountValues(amounts))
		return
	}
	if text != "" {
		state.current.Description = strings.TrimSpace(state.current.Description + " " + text)
	}
}
