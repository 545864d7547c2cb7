package models

import (
	"fmt"
	"strings"
)

// ExtractionMethod identifies the strategy that produced a raw extraction
type ExtractionMethod string

const (
	MethodTables ExtractionMethod = "tables"
	MethodText   ExtractionMethod = "text"
	MethodOCR    ExtractionMethod = "ocr"
	MethodNone   ExtractionMethod = "none"
)

// Grid is a rows x columns text structure produced by table extraction
type Grid [][]string

// Width returns the widest row length
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Cell returns the trimmed cell at row, col. Negative columns count from the
// end of the row. Out of range cells are empty.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) {
		return ""
	}
	return RowCell(g[row], col)
}

// RowCell returns the trimmed cell at col, counting from the end when negative
func RowCell(row []string, col int) string {
	if col < 0 {
		col = len(row) + col
	}
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// PageText is the OCR text of a single page
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// RawExtraction is the ephemeral, per-document output of one extraction strategy.
// It carries either grids or text lines and has no monetary semantics of its own.
type RawExtraction struct {
	Method   ExtractionMethod `json:"method"`
	Grids    []Grid           `json:"grids,omitempty"`
	Lines    []string         `json:"lines,omitempty"`
	Text     string           `json:"text,omitempty"`
	Pages    int              `json:"pages"`
	OCRPages []PageText       `json:"ocr_pages,omitempty"`
}

// NewGridExtraction wraps table extraction output
func NewGridExtraction(grids []Grid) *RawExtraction {
	return &RawExtraction{Method: MethodTables, Grids: grids}
}

// NewTextExtraction wraps text-layer output, splitting it into lines
func NewTextExtraction(text string, pages int) *RawExtraction {
	return &RawExtraction{
		Method: MethodText,
		Text:   text,
		Lines:  SplitLines(text),
		Pages:  pages,
	}
}

// NewOCRExtraction joins OCR pages into one text with page banners
func NewOCRExtraction(pages []PageText) *RawExtraction {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- Página %d ---\n", p.Page)
		b.WriteString(p.Text)
	}
	text := b.String()
	return &RawExtraction{
		Method:   MethodOCR,
		Text:     text,
		Lines:    SplitLines(text),
		Pages:    len(pages),
		OCRPages: pages,
	}
}

// IsGrid reports whether the extraction carries table grids
func (r *RawExtraction) IsGrid() bool {
	return r != nil && len(r.Grids) > 0
}

// IsEmpty reports whether the extraction carries no usable content
func (r *RawExtraction) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, g := range r.Grids {
		if len(g) > 0 {
			return false
		}
	}
	return strings.TrimSpace(r.Text) == "" && len(r.Lines) == 0
}

// DetectionText returns the best text available for institution detection:
// the text layer or OCR text when present, otherwise the joined grid cells.
func (r *RawExtraction) DetectionText() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.Text) != "" {
		return r.Text
	}
	if len(r.Lines) > 0 {
		return strings.Join(r.Lines, "\n")
	}
	var b strings.Builder
	for _, g := range r.Grids {
		for _, row := range g {
			b.WriteString(strings.Join(row, " "))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SplitLines splits text into lines, dropping blank ones
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
