package extraction

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/pkg/errors"
)

// fakeRunner records invocations and answers them through handle
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	handle func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	return f.handle(name, args)
}

func (f *fakeRunner) callsTo(name string) [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]string
	for _, c := range f.calls {
		if c[0] == name {
			out = append(out, c[1:])
		}
	}
	return out
}

func reply(out string) func(string, []string) ([]byte, error) {
	return func(string, []string) ([]byte, error) { return []byte(out), nil }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestTabulaExtractor_DecodesGrids(t *testing.T) {
	output := `[
		{"data": [[{"text": "Fecha"}, {"text": " Concepto "}], [{"text": "01/03/2025"}, {"text": "Deposito"}]]},
		{"data": [[{"text": ""}, {"text": "  "}]]}
	]`
	runner := &fakeRunner{handle: reply(output)}
	extractor := NewTabulaExtractor(runner, []string{"java", "-jar", "tabula.jar"})

	grids, err := extractor.ExtractTables(context.Background(), "statement.pdf", FlavorStream)

	require.NoError(t, err)
	require.Len(t, grids, 1)
	assert.Equal(t, models.Grid{{"Fecha", "Concepto"}, {"01/03/2025", "Deposito"}}, grids[0])

	calls := runner.callsTo("java")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-jar", "tabula.jar", "--format", "JSON", "--pages", "all", "--stream", "statement.pdf"}, calls[0])
}

func TestTabulaExtractor_Errors(t *testing.T) {
	tests := []struct {
		name     string
		handle   func(string, []string) ([]byte, error)
		wantCode errors.ErrorCode
	}{
		{
			name: "missing tool",
			handle: func(string, []string) ([]byte, error) {
				return nil, &exec.Error{Name: "tabula", Err: exec.ErrNotFound}
			},
			wantCode: errors.CodeToolMissing,
		},
		{
			name: "tool failure",
			handle: func(string, []string) ([]byte, error) {
				return nil, fmt.Errorf("exit status 1")
			},
			wantCode: errors.CodeToolFailed,
		},
		{
			name:     "malformed output",
			handle:   reply(`{"not": "a list"`),
			wantCode: errors.CodeDecodeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewTabulaExtractor(&fakeRunner{handle: tt.handle}, nil)

			grids, err := extractor.ExtractTables(context.Background(), "statement.pdf", FlavorLattice)

			assert.Nil(t, grids)
			extractorErr, ok := errors.AsExtractorError(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryExtraction, extractorErr.Category)
			assert.Equal(t, tt.wantCode, extractorErr.Code)
		})
	}
}

func TestTabulaExtractor_NoTables(t *testing.T) {
	for _, out := range []string{"", "[]", "  \n"} {
		grids, err := NewTabulaExtractor(&fakeRunner{handle: reply(out)}, nil).
			ExtractTables(context.Background(), "statement.pdf", FlavorLattice)
		require.NoError(t, err)
		assert.Empty(t, grids)
	}
}

func TestPDFTextExtractor(t *testing.T) {
	runner := &fakeRunner{handle: reply("Banco Galicia\n01/03/2025 Deposito 100,00\n\fSegunda hoja\n\f")}
	extractor := NewPDFTextExtractor(runner, "")

	result, err := extractor.ExtractText(context.Background(), "statement.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Pages)
	assert.NotContains(t, result.Text, "\f")
	assert.Contains(t, result.Text, "Segunda hoja")
	assert.Equal(t, [][]string{{"-layout", "statement.pdf", "-"}}, runner.callsTo("pdftotext"))
}

func TestPDFTextExtractor_FallbackFailure(t *testing.T) {
	runner := &fakeRunner{handle: func(string, []string) ([]byte, error) {
		return nil, &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}
	}}
	path := writeFile(t, "broken.pdf", "this is not a pdf")

	_, err := NewPDFTextExtractor(runner, "pdftotext").ExtractText(context.Background(), path)

	extractorErr, ok := errors.AsExtractorError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeToolMissing, extractorErr.Code)
}

func TestCountPages(t *testing.T) {
	assert.Equal(t, 0, countPages(""))
	assert.Equal(t, 1, countPages("only page\n"))
	assert.Equal(t, 2, countPages("one\ftwo"))
	assert.Equal(t, 2, countPages("one\ftwo\f\n"))
}

func TestScorePage(t *testing.T) {
	statement := "Fecha Concepto Débito Crédito Saldo\n" +
		"01/03/2025 Deposito 1.000,00 5.000,00\n"
	cover := "Estimado cliente, le informamos nuevas condiciones"
	dense := strings.Repeat("01/03/2025 compra 1.234,56\n", 8)
	headersAndDates := "Fecha Saldo\n" + strings.Repeat("01/03/25 x\n", 5)

	tests := []struct {
		name     string
		text     string
		relevant bool
	}{
		{"movements header", statement, true},
		{"cover letter", cover, false},
		{"many dates and amounts", dense, true},
		{"two headers and dates", headersAndDates, true},
		{"two headers only", "Fecha Saldo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.relevant, ScorePage(tt.text).Relevant(), "%+v", ScorePage(tt.text))
		})
	}

	score := ScorePage(statement)
	assert.Equal(t, 5, score.Headers)
	assert.Equal(t, 1, score.Dates)
	assert.Equal(t, 2, score.Amounts)
}

// ocrRunner simulates pdftoppm writing page images and tesseract reading them
func ocrRunner(t *testing.T, pageTexts map[string]string, pages int) *fakeRunner {
	return &fakeRunner{handle: func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			first, last := 1, pages
			for i, a := range args {
				if a == "-f" {
					fmt.Sscanf(args[i+1], "%d", &first)
					last = first
				}
			}
			for p := first; p <= last; p++ {
				require.NoError(t, os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, p), []byte("png"), 0o600))
			}
			return nil, nil
		case "tesseract":
			base := filepath.Base(args[0])
			for prefix, text := range pageTexts {
				if strings.HasPrefix(base, prefix) {
					return []byte(text), nil
				}
			}
			return []byte(""), nil
		}
		return nil, fmt.Errorf("unexpected command %s", name)
	}}
}

func TestTesseractOCR_TwoPasses(t *testing.T) {
	runner := ocrRunner(t, map[string]string{
		"quick-1.png": "Estimado cliente",
		"quick-2.png": "Fecha Concepto Debito Credito Saldo",
		"quick-3.png": "Publicidad",
		"full-p2-":    "Fecha Concepto Debito Credito Saldo\n01/03/2025 Deposito 100,00",
	}, 3)

	pages, err := NewTesseractOCR(runner, DefaultConfig()).ExtractPages(context.Background(), "scan.pdf")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 2, pages[0].Page)
	assert.Contains(t, pages[0].Text, "01/03/2025 Deposito")

	renders := runner.callsTo("pdftoppm")
	require.Len(t, renders, 2)
	assert.Equal(t, []string{"-r", "160", "-png"}, renders[0][:3])
	assert.Equal(t, []string{"-r", "300", "-png", "-f", "2", "-l", "2", "scan.pdf"}, renders[1][:8])

	reads := runner.callsTo("tesseract")
	require.Len(t, reads, 4)
	assert.Equal(t, []string{"stdout", "--oem", "1", "--psm", "6", "-l", "spa"}, reads[0][1:])
}

func TestTesseractOCR_NoRelevantPages(t *testing.T) {
	runner := ocrRunner(t, map[string]string{"quick-": "Publicidad"}, 2)

	pages, err := NewTesseractOCR(runner, DefaultConfig()).ExtractPages(context.Background(), "scan.pdf")

	require.Error(t, err)
	extractorErr, ok := errors.AsExtractorError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeNoRelevantPages, extractorErr.Code)
	assert.Equal(t, 2, extractorErr.Context["pages"])
	assert.Empty(t, pages)
	assert.Len(t, runner.callsTo("pdftoppm"), 1)
}

// countingTables counts calls to the wrapped strategy
type countingTables struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingTables) ExtractTables(context.Context, string, Flavor) ([]models.Grid, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []models.Grid{{{"Fecha", "Saldo"}}}, nil
}

func TestCachedExtractor(t *testing.T) {
	first := writeFile(t, "a.pdf", "same content")
	duplicate := writeFile(t, "b.pdf", "same content")
	other := writeFile(t, "c.pdf", "other content")

	inner := &countingTables{}
	c := NewCachedExtractor(time.Minute)
	tables := c.Wrap(Extractors{Tables: inner}).Tables
	ctx := context.Background()

	for _, path := range []string{first, duplicate, first} {
		grids, err := tables.ExtractTables(ctx, path, FlavorLattice)
		require.NoError(t, err)
		assert.Len(t, grids, 1)
	}
	assert.Equal(t, 1, inner.calls)

	_, _ = tables.ExtractTables(ctx, first, FlavorStream)
	_, _ = tables.ExtractTables(ctx, other, FlavorLattice)
	assert.Equal(t, 3, inner.calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(3), misses)
}

func TestCachedExtractor_DoesNotCacheFailures(t *testing.T) {
	path := writeFile(t, "a.pdf", "content")
	inner := &countingTables{err: fmt.Errorf("boom")}
	tables := NewCachedExtractor(time.Minute).Wrap(Extractors{Tables: inner}).Tables

	for i := 0; i < 2; i++ {
		_, err := tables.ExtractTables(context.Background(), path, FlavorLattice)
		assert.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCachedExtractor_KeepsMissingStrategies(t *testing.T) {
	wrapped := NewCachedExtractor(time.Minute).Wrap(Extractors{Tables: &countingTables{}})
	assert.NotNil(t, wrapped.Tables)
	assert.Nil(t, wrapped.Text)
	assert.Nil(t, wrapped.OCR)
}

func TestNewExtractors(t *testing.T) {
	config := DefaultConfig()
	config.EnableOCR = false
	config.CacheTTL = 0

	e := NewExtractors(config, &fakeRunner{handle: reply("")})

	assert.IsType(t, &TabulaExtractor{}, e.Tables)
	assert.IsType(t, &PDFTextExtractor{}, e.Text)
	assert.Nil(t, e.OCR)

	cached := NewExtractors(DefaultConfig(), &fakeRunner{handle: reply("")})
	assert.IsType(t, &cachedTables{}, cached.Tables)
	assert.NotNil(t, cached.OCR)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"no table command", func(c *Config) { c.TableCommand = nil }, true},
		{"unknown flavor", func(c *Config) { c.TableFlavor = "grid" }, true},
		{"no text command", func(c *Config) { c.TextCommand = " " }, true},
		{"inverted resolutions", func(c *Config) { c.QuickDPI = 400 }, true},
		{"resolutions ignored without OCR", func(c *Config) { c.EnableOCR = false; c.QuickDPI = 0 }, false},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFlavor_Alternate(t *testing.T) {
	assert.Equal(t, FlavorStream, FlavorLattice.Alternate())
	assert.Equal(t, FlavorLattice, FlavorStream.Alternate())
}
