package extractor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// BatchProcessor extracts many documents with bounded concurrency. Each
// document runs under its own timeout and failures never stop the batch.
type BatchProcessor struct {
	orchestrator *Orchestrator
	concurrency  int
	timeout      time.Duration
	logger       logger.Logger
}

// NewBatchProcessor creates a batch processor. Zero concurrency or timeout
// take the orchestrator configuration values.
func NewBatchProcessor(o *Orchestrator, concurrency int, timeout time.Duration) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = o.config.Concurrency
	}
	if timeout <= 0 {
		timeout = o.config.DocumentTimeout
	}
	return &BatchProcessor{
		orchestrator: o,
		concurrency:  concurrency,
		timeout:      timeout,
		logger:       logger.WithComponent("batch"),
	}
}

// Process extracts every path and returns the documents in input order
func (b *BatchProcessor) Process(ctx context.Context, paths []string) []*DocumentContext {
	results := make([]*DocumentContext, len(paths))
	if len(paths) == 0 {
		return results
	}

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "statement_extraction",
		Total:     int64(len(paths)),
		Logger:    b.logger,
	})

	// Workers never return an error, so the group context is only cancelled
	// by the parent.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			docCtx, cancel := context.WithTimeout(gctx, b.timeout)
			defer cancel()

			doc := b.orchestrator.Extract(docCtx, path, "")
			if err := docCtx.Err(); err != nil && !doc.Succeeded() {
				doc.addFailure(StageCompleted, errors.InternalError(errors.CodeTimeout, "document extraction", err))
			}
			results[i] = doc
			tracker.Done(!doc.Succeeded())
			return nil
		})
	}
	_ = g.Wait()

	tracker.Complete()
	return results
}

// BatchSummary aggregates the outcome of a batch
type BatchSummary struct {
	Documents     int                  `json:"documents"`
	Succeeded     int                  `json:"succeeded"`
	Failed        int                  `json:"failed"`
	Transactions  int                  `json:"transactions"`
	Observations  int                  `json:"observations"`
	ByMethod      map[string]int       `json:"by_method"`
	ByInstitution map[string]int       `json:"by_institution"`
	Fallbacks     map[string]int       `json:"fallbacks"`
	Errors        *errors.ErrorSummary `json:"errors"`
	Slowest       time.Duration        `json:"slowest"`
}

// Summarize builds the summary of a batch of documents
func Summarize(docs []*DocumentContext) *BatchSummary {
	summary := &BatchSummary{
		ByMethod:      make(map[string]int),
		ByInstitution: make(map[string]int),
		Fallbacks:     make(map[string]int),
	}

	var errs []*errors.ExtractorError
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		summary.Documents++
		if doc.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Transactions += len(doc.Transactions)
		summary.Observations += doc.Report.Total()
		summary.ByMethod[string(doc.Method)]++
		if doc.Institution != "" {
			summary.ByInstitution[doc.Institution]++
		}
		for _, f := range doc.Fallbacks {
			summary.Fallbacks[f]++
		}
		if doc.Duration > summary.Slowest {
			summary.Slowest = doc.Duration
		}
		errs = append(errs, doc.Errors()...)
	}

	summary.Errors = errors.NewErrorSummary(errs)
	return summary
}

// ExitCode returns the process exit code for the batch: zero when at least
// one document produced records, otherwise the most severe recorded error.
func (s *BatchSummary) ExitCode() int {
	if s.Succeeded > 0 || s.Documents == 0 {
		return 0
	}
	if code := s.Errors.GetExitCode(); code > 0 {
		return code
	}
	return 1
}
