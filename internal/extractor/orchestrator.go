// Package extractor orchestrates the extraction of bank statements.
//
// For every document the Orchestrator:
//   - runs the extraction strategies in order (tables, text layer, OCR) and
//     keeps the first one producing enough content
//   - detects the institution and resolves its parser
//   - parses the raw extraction, retrying once with alternate table
//     detection for table-first institutions and falling back to the
//     generic parser
//   - annotates the records with consistency observations
//
// Extract never returns an error. Every problem is recorded on the returned
// DocumentContext and a failed document simply carries no transactions, so
// one bad file never stops a batch.
//
// Example usage:
//
//	orchestrator, err := extractor.NewOrchestrator(extraction.NewExtractors(nil, nil), nil, nil)
//	if err != nil {
//		return err
//	}
//	orchestrator.AddProgressCallback(func(p *extractor.DocumentProgress) {
//		fmt.Printf("%s: %s\n", p.Filename, p.Stage)
//	})
//
//	doc := orchestrator.Extract(ctx, "statement.pdf", "")
//	fmt.Println(doc.Institution, len(doc.Transactions))
package extractor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang-statement-extractor/internal/extraction"
	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/parsers"
	"golang-statement-extractor/internal/validator"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// Pipeline stages reported to progress callbacks and recorded on failures
const (
	StageExtraction = "extraction"
	StageDetection  = "detection"
	StageParsing    = "parsing"
	StageTableRetry = "table_retry"
	StageFallback   = "generic_fallback"
	StageValidation = "validation"
	StageCompleted  = "completed"
)

const totalStages = 6

// Recorder receives every finished document, typically to update metrics
type Recorder interface {
	ObserveDocument(doc *DocumentContext)
}

// DocumentProgress describes the stage a document is in
type DocumentProgress struct {
	DocumentID string        `json:"document_id"`
	Filename   string        `json:"filename"`
	Stage      string        `json:"stage"`
	Step       int           `json:"step"`
	TotalSteps int           `json:"total_steps"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ProgressCallback is called when a document enters a new stage. Callbacks
// may be invoked from several goroutines when documents run concurrently.
type ProgressCallback func(*DocumentProgress)

// Orchestrator runs the extraction pipeline. It holds no per-document state
// and is safe for concurrent use once configured.
type Orchestrator struct {
	extractors extraction.Extractors
	registry   *parsers.Registry
	validator  *validator.Validator
	recorder   Recorder
	config     *Config
	logger     logger.Logger

	callbacksMutex    sync.RWMutex
	progressCallbacks []ProgressCallback
}

// NewOrchestrator creates an orchestrator. A nil registry selects the
// default institution registry and a nil config selects DefaultConfig.
func NewOrchestrator(extractors extraction.Extractors, registry *parsers.Registry, config *Config) (*Orchestrator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "extractor", config, err)
	}
	if registry == nil {
		registry = parsers.DefaultRegistry()
	}

	log := logger.WithComponent("orchestrator")
	log.WithFields(logger.Fields{
		"tables":       extractors.Tables != nil,
		"text":         extractors.Text != nil,
		"ocr":          extractors.OCR != nil,
		"institutions": len(registry.IDs()),
	}).Debug("Creating extraction orchestrator")

	return &Orchestrator{
		extractors: extractors,
		registry:   registry,
		validator:  validator.New(nil),
		config:     config,
		logger:     log,
	}, nil
}

// SetValidator replaces the consistency validator
func (o *Orchestrator) SetValidator(v *validator.Validator) {
	if v != nil {
		o.validator = v
	}
}

// SetRecorder registers the receiver of finished documents
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// AddProgressCallback adds a progress callback function
func (o *Orchestrator) AddProgressCallback(callback ProgressCallback) {
	o.callbacksMutex.Lock()
	defer o.callbacksMutex.Unlock()
	o.progressCallbacks = append(o.progressCallbacks, callback)
}

// Config returns the orchestrator configuration
func (o *Orchestrator) Config() *Config {
	return o.config
}

// Registry returns the institution registry
func (o *Orchestrator) Registry() *parsers.Registry {
	return o.registry
}

// Extract runs the whole pipeline on one document. filenameHint replaces
// the base name of path for detection and year inference when set.
func (o *Orchestrator) Extract(ctx context.Context, path, filenameHint string) *DocumentContext {
	doc := newDocument(path, filenameHint)
	log := o.logger.WithFields(logger.Fields{
		"document_id": doc.ID,
		"file":        doc.Filename,
	})
	log.Info("Starting statement extraction")

	defer func() {
		if r := recover(); r != nil {
			doc.addFailure(StageCompleted, errors.InternalError(errors.CodeUnexpectedError, "extraction pipeline", fmt.Errorf("panic: %v", r)))
			doc.Transactions = nil
			log.WithField("panic", r).Error("Extraction pipeline panicked")
		}
		o.finish(doc, log)
	}()

	raw := o.extractRaw(ctx, doc, log)
	if raw.IsEmpty() {
		doc.addFailure(StageExtraction, errors.ExtractionError(errors.CodeNoContent, "any", doc.Path, nil))
		return doc
	}
	o.attachText(ctx, doc, raw, log)
	doc.YearHint = parsers.YearHint(raw, doc.Filename)

	o.notify(doc, StageDetection, 2)
	start := time.Now()
	doc.Institution = o.registry.Detect(raw.DetectionText(), doc.Filename)
	doc.track(StageDetection, start)
	log = log.WithField("institution", doc.Institution)
	log.Debug("Institution detected")

	o.notify(doc, StageParsing, 3)
	doc.Parser = doc.Institution
	records := o.parse(doc, doc.Institution, raw, log)

	if len(records) == 0 {
		records = o.retryTables(ctx, doc, raw, log)
	}

	if len(records) == 0 && doc.Institution != parsers.GenericID {
		o.notify(doc, StageFallback, 4)
		log.Info("No records from the institution parser; trying the generic parser")
		doc.Fallbacks = append(doc.Fallbacks, FallbackGeneric)
		records = o.parse(doc, parsers.GenericID, raw, log)
		if len(records) > 0 {
			doc.Parser = parsers.GenericID
		}
	}

	if len(records) == 0 {
		doc.addFailure(StageParsing, errors.ParseError(errors.CodeNoTransaction, doc.Institution, doc.Filename, nil))
		return doc
	}

	o.notify(doc, StageValidation, 5)
	start = time.Now()
	doc.Report = o.validator.Annotate(records)
	doc.track(StageValidation, start)
	if err := doc.Report.Err(); err != nil {
		log.WithError(err).Warn("Statement has inconsistencies")
	}
	doc.Transactions = records
	return doc
}

// Detect runs extraction and institution detection only
func (o *Orchestrator) Detect(ctx context.Context, path, filenameHint string) *DocumentContext {
	doc := newDocument(path, filenameHint)
	log := o.logger.WithFields(logger.Fields{
		"document_id": doc.ID,
		"file":        doc.Filename,
	})

	raw := o.extractRaw(ctx, doc, log)
	o.attachText(ctx, doc, raw, log)
	doc.YearHint = parsers.YearHint(raw, doc.Filename)
	doc.Institution = o.registry.Detect(raw.DetectionText(), doc.Filename)
	doc.Duration = time.Since(doc.StartedAt)
	return doc
}

// extractRaw runs the strategies in order and returns the first result with
// enough content. An empty extraction of method none is returned when every
// strategy fails.
func (o *Orchestrator) extractRaw(ctx context.Context, doc *DocumentContext, log logger.Logger) *models.RawExtraction {
	o.notify(doc, StageExtraction, 1)
	start := time.Now()
	defer doc.track(StageExtraction, start)

	steps := []func(context.Context, *DocumentContext, logger.Logger) *models.RawExtraction{
		o.tryTables,
		o.tryText,
		o.tryOCR,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			doc.addFailure(StageExtraction, errors.InternalError(errors.CodeTimeout, "extraction", err))
			log.WithError(err).Warn("Extraction interrupted")
			break
		}
		if raw := step(ctx, doc, log); raw != nil {
			doc.Method = raw.Method
			doc.Pages = raw.Pages
			return raw
		}
	}

	log.Warn("No extraction strategy produced content")
	return &models.RawExtraction{Method: models.MethodNone}
}

func (o *Orchestrator) tryTables(ctx context.Context, doc *DocumentContext, log logger.Logger) *models.RawExtraction {
	grids := o.extractTables(ctx, doc, o.config.TableFlavor, log)
	if len(grids) == 0 {
		return nil
	}
	doc.Attempts[len(doc.Attempts)-1].Accepted = true
	return models.NewGridExtraction(grids)
}

func (o *Orchestrator) extractTables(ctx context.Context, doc *DocumentContext, flavor extraction.Flavor, log logger.Logger) []models.Grid {
	if o.extractors.Tables == nil {
		return nil
	}
	start := time.Now()
	grids, err := o.extractors.Tables.ExtractTables(ctx, doc.Path, flavor)
	attempt := Attempt{Strategy: models.MethodTables, Flavor: string(flavor), Items: len(grids), Duration: time.Since(start)}
	if err != nil {
		attempt.Error = err.Error()
		doc.addFailure(StageExtraction, err)
		log.WithError(err).WithField("flavor", flavor).Warn("Table extraction failed")
		grids = nil
	}
	doc.Attempts = append(doc.Attempts, attempt)
	return grids
}

func (o *Orchestrator) tryText(ctx context.Context, doc *DocumentContext, log logger.Logger) *models.RawExtraction {
	if o.extractors.Text == nil {
		return nil
	}
	start := time.Now()
	result, err := o.extractors.Text.ExtractText(ctx, doc.Path)
	chars := nonBlankChars(result.Text)
	attempt := Attempt{Strategy: models.MethodText, Items: chars, Duration: time.Since(start)}
	defer func() { doc.Attempts = append(doc.Attempts, attempt) }()

	if err != nil {
		attempt.Error = err.Error()
		doc.addFailure(StageExtraction, err)
		log.WithError(err).Warn("Text extraction failed")
		return nil
	}
	if chars <= o.config.MinTextChars {
		log.WithField("chars", chars).Debug("Text layer too short")
		return nil
	}
	attempt.Accepted = true
	return models.NewTextExtraction(result.Text, result.Pages)
}

func (o *Orchestrator) tryOCR(ctx context.Context, doc *DocumentContext, log logger.Logger) *models.RawExtraction {
	if o.extractors.OCR == nil {
		return nil
	}
	start := time.Now()
	pages, err := o.extractors.OCR.ExtractPages(ctx, doc.Path)
	chars := 0
	for _, p := range pages {
		chars += nonBlankChars(p.Text)
	}
	attempt := Attempt{Strategy: models.MethodOCR, Items: chars, Duration: time.Since(start)}
	defer func() { doc.Attempts = append(doc.Attempts, attempt) }()

	if err != nil {
		attempt.Error = err.Error()
		doc.addFailure(StageExtraction, err)
		log.WithError(err).Warn("OCR failed")
		return nil
	}
	if chars <= o.config.MinOCRChars {
		log.WithField("chars", chars).Debug("OCR text too short")
		return nil
	}
	attempt.Accepted = true
	return models.NewOCRExtraction(pages)
}

// attachText adds the text layer to a grid extraction so that detection
// and year inference see the whole page, not only table cells. Failures are
// ignored: the grid cells remain the detection source.
func (o *Orchestrator) attachText(ctx context.Context, doc *DocumentContext, raw *models.RawExtraction, log logger.Logger) {
	if !raw.IsGrid() || o.extractors.Text == nil || ctx.Err() != nil {
		return
	}
	result, err := o.extractors.Text.ExtractText(ctx, doc.Path)
	if err != nil {
		log.WithError(err).Debug("Text layer unavailable for detection")
		return
	}
	raw.Text = result.Text
	if raw.Pages == 0 {
		raw.Pages = result.Pages
		doc.Pages = result.Pages
	}
}

// retryTables re-runs table detection once with the alternate flavor for
// institutions that prefer tables when the first result was not a grid
func (o *Orchestrator) retryTables(ctx context.Context, doc *DocumentContext, raw *models.RawExtraction, log logger.Logger) []models.Transaction {
	descriptor, ok := o.registry.Lookup(doc.Institution)
	if !ok || !descriptor.PreferTables || raw.IsGrid() || !o.config.EnableTableRetry || o.extractors.Tables == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	o.notify(doc, StageTableRetry, 4)
	log.Info("Retrying table extraction for a table-first institution")
	doc.Fallbacks = append(doc.Fallbacks, FallbackTableRetry)

	grids := o.extractTables(ctx, doc, o.config.TableFlavor.Alternate(), log)
	if len(grids) == 0 {
		return nil
	}
	records := o.parse(doc, doc.Institution, models.NewGridExtraction(grids), log)
	if len(records) > 0 {
		doc.Attempts[len(doc.Attempts)-1].Accepted = true
		doc.Method = models.MethodTables
	}
	return records
}

// parse runs one parser, turning a panic into a recorded failure
func (o *Orchestrator) parse(doc *DocumentContext, id string, raw *models.RawExtraction, log logger.Logger) (records []models.Transaction) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			doc.addFailure(StageParsing, errors.ParseError(errors.CodeParserPanic, id, doc.Filename, fmt.Errorf("%v", r)))
			log.WithFields(logger.Fields{"parser": id, "panic": r}).Error("Parser panicked")
			records = nil
		}
		doc.track(StageParsing, start)
	}()

	records = o.registry.Parser(id).Parse(raw, doc.Filename)
	log.WithFields(logger.Fields{
		"parser":  id,
		"method":  raw.Method,
		"records": len(records),
	}).Debug("Parser finished")
	return records
}

func (o *Orchestrator) finish(doc *DocumentContext, log logger.Logger) {
	doc.Duration = time.Since(doc.StartedAt)
	o.notify(doc, StageCompleted, totalStages)

	fields := logger.Fields{
		"institution":  doc.Institution,
		"parser":       doc.Parser,
		"method":       doc.Method,
		"transactions": len(doc.Transactions),
		"observations": doc.Report.Total(),
		"duration":     doc.Duration.Round(time.Millisecond).String(),
	}
	if len(doc.Fallbacks) > 0 {
		fields["fallbacks"] = strings.Join(doc.Fallbacks, ",")
	}
	if doc.Succeeded() {
		log.WithFields(fields).Info("Statement extraction completed")
	} else {
		log.WithFields(fields).WithField("failures", len(doc.Failures)).Warn("Statement extraction produced no transactions")
	}

	if o.recorder != nil {
		o.recorder.ObserveDocument(doc)
	}
}

func (o *Orchestrator) notify(doc *DocumentContext, stage string, step int) {
	o.callbacksMutex.RLock()
	callbacks := o.progressCallbacks
	o.callbacksMutex.RUnlock()
	if len(callbacks) == 0 {
		return
	}

	progress := &DocumentProgress{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Stage:      stage,
		Step:       step,
		TotalSteps: totalStages,
		Elapsed:    time.Since(doc.StartedAt),
	}
	for _, cb := range callbacks {
		cb(progress)
	}
}

func nonBlankChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
