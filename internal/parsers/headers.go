package parsers

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/normalize"
)

// minHeaderFields is the number of distinct fields a row needs to be a header
const minHeaderFields = 2

// minAbbreviation is the shortest token accepted as an abbreviated header
const minAbbreviation = 3

// fieldOrder breaks ties when a header cell matches several fields
var fieldOrder = []Field{
	FieldDate,
	FieldDescription,
	FieldReference,
	FieldDebit,
	FieldCredit,
	FieldBalance,
	FieldAmount,
}

// headerSynonyms are folded column names, without accents
var headerSynonyms = map[Field][]string{
	FieldDate:        {"fecha", "date", "fec", "dia"},
	FieldDescription: {"concepto", "detalle", "descripcion", "causal", "operacion", "movimiento", "movimientos"},
	FieldReference:   {"referencia", "ref", "nro", "numero", "comprobante", "transaccion"},
	FieldDebit:       {"debito", "debitos", "debe", "egreso", "egresos", "salida", "cargo"},
	FieldCredit:      {"credito", "creditos", "haber", "ingreso", "ingresos", "entrada", "abono", "deposito"},
	FieldBalance:     {"saldo", "balance", "total"},
	FieldAmount:      {"importe", "monto", "valor"},
}

// headerMatcher maps header cells to canonical fields
type headerMatcher struct {
	synonyms map[Field][]string
}

func newHeaderMatcher(aliases map[Field][]string) *headerMatcher {
	m := &headerMatcher{synonyms: make(map[Field][]string, len(headerSynonyms))}
	for field, words := range headerSynonyms {
		m.synonyms[field] = append([]string(nil), words...)
	}
	for field, words := range aliases {
		for _, w := range words {
			m.synonyms[field] = append(m.synonyms[field], headerTokens(w)...)
		}
	}
	return m
}

func headerTokens(s string) []string {
	return strings.FieldsFunc(normalize.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// classify returns the field a header cell names. Exact token matches win;
// otherwise an abbreviated token ("desc", "deb.") is matched against the
// synonym it ranks closest to.
func (m *headerMatcher) classify(cell string) (Field, bool) {
	tokens := headerTokens(cell)
	if len(tokens) == 0 {
		return "", false
	}

	for _, tok := range tokens {
		for _, field := range fieldOrder {
			for _, syn := range m.synonyms[field] {
				if tok == syn {
					return field, true
				}
			}
		}
	}

	var (
		best     Field
		bestRank = -1
	)
	for _, tok := range tokens {
		if len(tok) < minAbbreviation {
			continue
		}
		for _, field := range fieldOrder {
			for _, syn := range m.synonyms[field] {
				if len(tok) >= len(syn) || tok[0] != syn[0] {
					continue
				}
				rank := fuzzy.RankMatch(tok, syn)
				if rank < 0 {
					continue
				}
				if bestRank < 0 || rank < bestRank {
					best, bestRank = field, rank
				}
			}
		}
		if bestRank >= 0 {
			return best, true
		}
	}
	return "", false
}

// columns maps every recognizable cell of a row to its field. The first
// column naming a field keeps it.
func (m *headerMatcher) columns(row []string) map[Field]int {
	cols := make(map[Field]int)
	for i, cell := range row {
		if looksLikeData(cell) {
			continue
		}
		field, ok := m.classify(cell)
		if !ok {
			continue
		}
		if _, taken := cols[field]; !taken {
			cols[field] = i
		}
	}
	return cols
}

// findHeader returns the first row naming at least two distinct fields
func (m *headerMatcher) findHeader(grid models.Grid) (int, map[Field]int, bool) {
	for i, row := range grid {
		if rowHasData(row) {
			continue
		}
		cols := m.columns(row)
		if len(cols) >= minHeaderFields {
			return i, cols, true
		}
	}
	return -1, nil, false
}

// isHeaderLine reports whether a text line is a movements table header
func (m *headerMatcher) isHeaderLine(line string) bool {
	seen := make(map[Field]bool)
	for _, tok := range headerTokens(line) {
		for _, field := range []Field{FieldDate, FieldDescription, FieldDebit, FieldCredit, FieldBalance} {
			for _, syn := range m.synonyms[field] {
				if tok == syn {
					seen[field] = true
				}
			}
		}
	}
	return len(seen) >= minHeaderFields
}

func looksLikeData(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return false
	}
	return normalize.IsAmount(cell) || isDateLike(cell)
}

func rowHasData(row []string) bool {
	for _, cell := range row {
		if looksLikeData(cell) {
			return true
		}
	}
	return false
}
