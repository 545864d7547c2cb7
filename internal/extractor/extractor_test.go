package extractor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-statement-extractor/internal/extraction"
	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/parsers"
	"golang-statement-extractor/pkg/errors"
)

const statementLine = "05/05/25 186339 Transf.Cliente 492.307,46 3.430.919,90\n"

type fakeTables struct {
	mu       sync.Mutex
	byFlavor map[extraction.Flavor][]models.Grid
	err      error
	calls    []extraction.Flavor
}

func (f *fakeTables) ExtractTables(_ context.Context, _ string, flavor extraction.Flavor) ([]models.Grid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, flavor)
	if f.err != nil {
		return nil, f.err
	}
	return f.byFlavor[flavor], nil
}

type fakeText struct {
	texts    map[string]string
	fallback string
	err      error
	panics   bool
	slow     string
	calls    atomic.Int32
}

func (f *fakeText) ExtractText(ctx context.Context, path string) (extraction.TextResult, error) {
	f.calls.Add(1)
	if f.panics {
		panic("text layer exploded")
	}
	if path == f.slow {
		<-ctx.Done()
		return extraction.TextResult{}, ctx.Err()
	}
	if f.err != nil {
		return extraction.TextResult{}, f.err
	}
	text, ok := f.texts[path]
	if !ok {
		text = f.fallback
	}
	return extraction.TextResult{Text: text, Pages: 1}, nil
}

type fakeOCR struct {
	pages []models.PageText
	err   error
	calls atomic.Int32
}

func (f *fakeOCR) ExtractPages(context.Context, string) ([]models.PageText, error) {
	f.calls.Add(1)
	return f.pages, f.err
}

type countingRecorder struct {
	mu   sync.Mutex
	docs []*DocumentContext
}

func (r *countingRecorder) ObserveDocument(doc *DocumentContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
}

func testConfig() *Config {
	return &Config{
		MinTextChars:     10,
		MinOCRChars:      10,
		TableFlavor:      extraction.FlavorLattice,
		EnableTableRetry: true,
		Concurrency:      2,
		DocumentTimeout:  time.Second,
	}
}

func newTestOrchestrator(t *testing.T, e extraction.Extractors, registry *parsers.Registry, cfg *Config) *Orchestrator {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	o, err := NewOrchestrator(e, registry, cfg)
	require.NoError(t, err)
	return o
}

func hasCode(doc *DocumentContext, code errors.ErrorCode) bool {
	return errors.NewErrorSummary(doc.Errors()).HasCode(code)
}

func TestOrchestrator_TextLayer(t *testing.T) {
	tables := &fakeTables{}
	text := &fakeText{fallback: statementLine}
	ocr := &fakeOCR{}
	o := newTestOrchestrator(t, extraction.Extractors{Tables: tables, Text: text, OCR: ocr}, nil, nil)

	doc := o.Extract(context.Background(), "/tmp/statement.pdf", "")

	require.True(t, doc.Succeeded())
	assert.Equal(t, models.MethodText, doc.Method)
	assert.Equal(t, parsers.GenericID, doc.Institution)
	assert.Equal(t, parsers.GenericID, doc.Parser)
	assert.Empty(t, doc.Fallbacks)
	assert.Empty(t, doc.Failures)
	assert.Equal(t, "statement.pdf", doc.Filename)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "05/05/2025", doc.Transactions[0].Date)

	require.Len(t, doc.Attempts, 2)
	assert.Equal(t, models.MethodTables, doc.Attempts[0].Strategy)
	assert.False(t, doc.Attempts[0].Accepted)
	assert.Equal(t, models.MethodText, doc.Attempts[1].Strategy)
	assert.True(t, doc.Attempts[1].Accepted)
	assert.Equal(t, int32(0), ocr.calls.Load(), "OCR runs only when the text layer is insufficient")
}

func TestOrchestrator_ShortTextFallsThroughToOCR(t *testing.T) {
	text := &fakeText{fallback: "  x  "}
	ocr := &fakeOCR{pages: []models.PageText{{Page: 1, Text: statementLine}}}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text, OCR: ocr}, nil, nil)

	doc := o.Extract(context.Background(), "scan.pdf", "")

	require.True(t, doc.Succeeded())
	assert.Equal(t, models.MethodOCR, doc.Method)
	assert.Equal(t, 1, doc.Pages)
	require.Len(t, doc.Attempts, 2)
	assert.False(t, doc.Attempts[0].Accepted)
	assert.True(t, doc.Attempts[1].Accepted)
}

func TestOrchestrator_NoContent(t *testing.T) {
	tables := &fakeTables{err: errors.ExtractionError(errors.CodeToolMissing, "tables", "x.pdf", nil)}
	text := &fakeText{}
	ocr := &fakeOCR{}
	recorder := &countingRecorder{}
	o := newTestOrchestrator(t, extraction.Extractors{Tables: tables, Text: text, OCR: ocr}, nil, nil)
	o.SetRecorder(recorder)

	doc := o.Extract(context.Background(), "x.pdf", "")

	assert.False(t, doc.Succeeded())
	assert.Empty(t, doc.Transactions)
	assert.Equal(t, models.MethodNone, doc.Method)
	assert.True(t, hasCode(doc, errors.CodeToolMissing))
	assert.True(t, hasCode(doc, errors.CodeNoContent))
	assert.Len(t, doc.Attempts, 3)
	assert.Len(t, recorder.docs, 1)

	summary := Summarize([]*DocumentContext{doc})
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 3, summary.ExitCode())
}

func TestOrchestrator_ScanWithoutStatementPages(t *testing.T) {
	text := &fakeText{}
	ocr := &fakeOCR{err: errors.ExtractionError(errors.CodeNoRelevantPages, "ocr", "scan.pdf", nil)}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text, OCR: ocr}, nil, nil)

	doc := o.Extract(context.Background(), "scan.pdf", "")

	assert.False(t, doc.Succeeded())
	assert.True(t, hasCode(doc, errors.CodeNoRelevantPages))
	assert.True(t, hasCode(doc, errors.CodeNoContent))
	require.Len(t, doc.Attempts, 2)
	assert.Equal(t, models.MethodOCR, doc.Attempts[1].Strategy)
	assert.NotEmpty(t, doc.Attempts[1].Error)
}

func TestOrchestrator_NoTransactions(t *testing.T) {
	text := &fakeText{fallback: "Resumen de cuenta sin movimientos en el periodo"}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text}, nil, nil)

	doc := o.Extract(context.Background(), "empty.pdf", "")

	assert.False(t, doc.Succeeded())
	assert.Equal(t, parsers.GenericID, doc.Institution)
	assert.Empty(t, doc.Fallbacks, "the generic parser is not retried as its own fallback")
	assert.True(t, hasCode(doc, errors.CodeNoTransaction))
}

func TestOrchestrator_GenericFallback(t *testing.T) {
	registry, err := parsers.NewRegistry([]parsers.Descriptor{{
		ID:       "ACME",
		Keywords: []string{"ACME BANK"},
		Layout: parsers.Layout{Grid: parsers.GridLayout{Positions: map[parsers.Field]int{
			parsers.FieldDate:   1,
			parsers.FieldAmount: 2,
		}}},
	}})
	require.NoError(t, err)

	grid := models.Grid{{"05/05/25", "186339 Transf.Cliente", "492.307,46", "3.430.919,90"}}
	tables := &fakeTables{byFlavor: map[extraction.Flavor][]models.Grid{
		extraction.FlavorLattice: {grid},
	}}
	text := &fakeText{fallback: "ACME BANK account statement"}
	o := newTestOrchestrator(t, extraction.Extractors{Tables: tables, Text: text}, registry, nil)

	doc := o.Extract(context.Background(), "acme.pdf", "")

	require.True(t, doc.Succeeded())
	assert.Equal(t, "ACME", doc.Institution, "detection reads the text layer of grid documents")
	assert.Equal(t, parsers.GenericID, doc.Parser)
	assert.Equal(t, []string{FallbackGeneric}, doc.Fallbacks)
	assert.Equal(t, models.MethodTables, doc.Method)
	assert.Len(t, doc.Transactions, 1)
}

func tableFirstRegistry(t *testing.T) *parsers.Registry {
	t.Helper()
	registry, err := parsers.NewRegistry([]parsers.Descriptor{{
		ID:           "GRIDBANK",
		Keywords:     []string{"GRID BANK"},
		PreferTables: true,
	}})
	require.NoError(t, err)
	return registry
}

func TestOrchestrator_TableRetry(t *testing.T) {
	grid := models.Grid{
		{"Fecha", "Concepto", "Debitos", "Creditos", "Saldo"},
		{"01/01/2025", "Deposito", "", "100,00", "1.100,00"},
		{"02/01/2025", "Cargo", "25,00", "", "1.075,00"},
	}
	tables := &fakeTables{byFlavor: map[extraction.Flavor][]models.Grid{
		extraction.FlavorStream: {grid},
	}}
	text := &fakeText{fallback: "GRID BANK resumen de cuenta corriente\nSin movimientos\n"}
	o := newTestOrchestrator(t, extraction.Extractors{Tables: tables, Text: text}, tableFirstRegistry(t), nil)

	doc := o.Extract(context.Background(), "grid.pdf", "")

	require.True(t, doc.Succeeded())
	assert.Equal(t, "GRIDBANK", doc.Institution)
	assert.Equal(t, "GRIDBANK", doc.Parser)
	assert.Equal(t, []string{FallbackTableRetry}, doc.Fallbacks)
	assert.Equal(t, models.MethodTables, doc.Method)
	assert.Equal(t, []extraction.Flavor{extraction.FlavorLattice, extraction.FlavorStream}, tables.calls)
	assert.Len(t, doc.Transactions, 2)
	assert.False(t, doc.Report.HasIssues())

	last := doc.Attempts[len(doc.Attempts)-1]
	assert.Equal(t, "stream", last.Flavor)
	assert.True(t, last.Accepted)
}

func TestOrchestrator_TableRetryDisabled(t *testing.T) {
	tables := &fakeTables{}
	text := &fakeText{fallback: "GRID BANK resumen de cuenta corriente\nSin movimientos\n"}
	cfg := testConfig()
	cfg.EnableTableRetry = false
	o := newTestOrchestrator(t, extraction.Extractors{Tables: tables, Text: text}, tableFirstRegistry(t), cfg)

	doc := o.Extract(context.Background(), "grid.pdf", "")

	assert.False(t, doc.Succeeded())
	assert.Equal(t, []string{FallbackGeneric}, doc.Fallbacks)
	assert.Equal(t, []extraction.Flavor{extraction.FlavorLattice}, tables.calls)
	assert.True(t, hasCode(doc, errors.CodeNoTransaction))
}

func TestOrchestrator_RecoversFromPanics(t *testing.T) {
	o := newTestOrchestrator(t, extraction.Extractors{Text: &fakeText{panics: true}}, nil, nil)

	var doc *DocumentContext
	require.NotPanics(t, func() {
		doc = o.Extract(context.Background(), "bad.pdf", "")
	})

	assert.False(t, doc.Succeeded())
	assert.True(t, hasCode(doc, errors.CodeUnexpectedError))
	assert.False(t, doc.StartedAt.IsZero())
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	text := &fakeText{fallback: statementLine}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := o.Extract(ctx, "x.pdf", "")

	assert.False(t, doc.Succeeded())
	assert.True(t, hasCode(doc, errors.CodeTimeout))
	assert.Equal(t, int32(0), text.calls.Load())
}

func TestOrchestrator_ProgressCallbacks(t *testing.T) {
	o := newTestOrchestrator(t, extraction.Extractors{Text: &fakeText{fallback: statementLine}}, nil, nil)

	var stages []string
	o.AddProgressCallback(func(p *DocumentProgress) {
		assert.Equal(t, "x.pdf", p.Filename)
		assert.Equal(t, totalStages, p.TotalSteps)
		stages = append(stages, p.Stage)
	})

	o.Extract(context.Background(), "x.pdf", "")

	assert.Equal(t, []string{StageExtraction, StageDetection, StageParsing, StageValidation, StageCompleted}, stages)
}

func TestOrchestrator_FilenameHint(t *testing.T) {
	o := newTestOrchestrator(t, extraction.Extractors{Text: &fakeText{fallback: statementLine}}, nil, nil)

	doc := o.Extract(context.Background(), "/tmp/upload-123", "santander_2024.pdf")

	assert.Equal(t, "santander_2024.pdf", doc.Filename)
	assert.Equal(t, 2024, doc.YearHint)
	assert.Equal(t, "SANTANDER", doc.Institution)
}

func TestOrchestrator_YearHintFromText(t *testing.T) {
	text := &fakeText{fallback: "Resumen Marzo 2023\nFecha Concepto Debito Credito Saldo\n05/03 Deposito 100,00 1.100,00\n"}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text}, nil, nil)

	doc := o.Extract(context.Background(), "statement.pdf", "")

	assert.Equal(t, 2023, doc.YearHint)
	require.NotEmpty(t, doc.Transactions)
	assert.Equal(t, "05/03/2023", doc.Transactions[0].Date)
}

func TestOrchestrator_Detect(t *testing.T) {
	o := newTestOrchestrator(t, extraction.Extractors{Text: &fakeText{fallback: "Banco Galicia resumen de cuenta"}}, nil, nil)

	doc := o.Detect(context.Background(), "g.pdf", "")

	assert.Equal(t, "GALICIA", doc.Institution)
	assert.Equal(t, models.MethodText, doc.Method)
	assert.Empty(t, doc.Transactions)
}

func TestNewOrchestrator_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Concurrency = 0

	_, err := NewOrchestrator(extraction.Extractors{}, nil, cfg)

	require.Error(t, err)
	e, ok := errors.AsExtractorError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryConfiguration, e.Category)
}

func TestBatchProcessor_PreservesInputOrder(t *testing.T) {
	text := &fakeText{
		fallback: statementLine,
		texts:    map[string]string{"empty.pdf": "sin movimientos en este periodo"},
	}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text}, nil, nil)
	paths := []string{"a.pdf", "empty.pdf", "b.pdf", "c.pdf", "d.pdf"}

	docs := NewBatchProcessor(o, 3, 0).Process(context.Background(), paths)

	require.Len(t, docs, len(paths))
	for i, doc := range docs {
		require.NotNil(t, doc)
		assert.Equal(t, paths[i], doc.Path)
	}
	assert.False(t, docs[1].Succeeded())

	summary := Summarize(docs)
	assert.Equal(t, 5, summary.Documents)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 4, summary.Transactions)
	assert.Equal(t, 5, summary.ByMethod[string(models.MethodText)])
	assert.Equal(t, 0, summary.ExitCode())
	assert.True(t, summary.Errors.HasCode(errors.CodeNoTransaction))
}

func TestBatchProcessor_DocumentTimeout(t *testing.T) {
	text := &fakeText{fallback: statementLine, slow: "slow.pdf"}
	o := newTestOrchestrator(t, extraction.Extractors{Text: text}, nil, nil)

	docs := NewBatchProcessor(o, 2, 50*time.Millisecond).Process(context.Background(), []string{"slow.pdf", "fast.pdf"})

	require.Len(t, docs, 2)
	assert.False(t, docs[0].Succeeded())
	assert.True(t, hasCode(docs[0], errors.CodeTimeout))
	assert.True(t, docs[1].Succeeded(), "a slow document does not affect the others")
}

func TestBatchProcessor_Empty(t *testing.T) {
	o := newTestOrchestrator(t, extraction.Extractors{}, nil, nil)
	assert.Empty(t, NewBatchProcessor(o, 0, 0).Process(context.Background(), nil))
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.Documents)
	assert.Equal(t, 0, summary.ExitCode())
	assert.Equal(t, 0, summary.Errors.Total)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"negative text threshold", func(c *Config) { c.MinTextChars = -1 }, true},
		{"negative OCR threshold", func(c *Config) { c.MinOCRChars = -1 }, true},
		{"unknown flavor", func(c *Config) { c.TableFlavor = "grid" }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"zero timeout", func(c *Config) { c.DocumentTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
