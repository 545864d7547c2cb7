package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-statement-extractor/cmd/extractor/config"
	"golang-statement-extractor/internal/extraction"
	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/metrics"
	"golang-statement-extractor/internal/reporter"
	"golang-statement-extractor/internal/validator"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract FILE|DIR...",
	Short: "Extract transactions from statement PDFs",
	Long: `Extract runs the extraction pipeline on every given PDF and on every PDF
found directly inside the given directories, then writes one report for the
whole batch.

A document that yields no transactions is reported with its failures and
never stops the batch. The exit code is 0 when at least one document
produced transactions.

Examples:
  # Console tables for a folder of statements
  extractor extract statements/

  # Machine-readable output
  extractor extract galicia_abril.pdf --output-format json -o galicia.json

  # One sheet per document plus a consolidated sheet
  extractor extract statements/ -f xlsx -o extractos.xlsx

  # Skip OCR and use a local tabula jar in stream mode
  extractor extract scan.pdf --enable-ocr=false \
    --table-command "java -jar tabula.jar" --table-flavor stream

  # Export run metrics for the node_exporter textfile collector
  extractor extract statements/ --metrics-file /var/lib/node_exporter/extractor.prom`,

	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags,
	RunE:    runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()

	// Output flags
	flags.StringP(config.KeyOutputFormat, "f", "console", "output format: console, json, csv, xlsx")
	flags.StringP(config.KeyOutputFile, "o", "", "output file path (default: stdout)")
	flags.Bool(config.KeyIncludeAttempts, false, "include every extraction attempt in the report")
	flags.Int(config.KeyMaxRows, 50, "maximum transactions per document in console output (0 for all)")
	flags.String(config.KeyCSVDelimiter, ",", "CSV delimiter: a single character, tab or semicolon")

	// Batch flags
	flags.IntP(config.KeyConcurrency, "c", 4, "documents processed in parallel")
	flags.Bool(config.KeyProgress, false, "show progress indicators")

	// Extraction flags
	addExtractionFlags(extractCmd)
	flags.String(config.KeyBalanceTolerance, "0.01", "accepted running balance difference")

	// Metrics flags
	flags.String(config.KeyMetricsFile, "", "write Prometheus metrics to this textfile")
}

// addExtractionFlags registers the flags that configure the extraction
// adapters on cmd
func addExtractionFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Duration(config.KeyTimeout, extractor.DefaultConfig().DocumentTimeout, "per-document timeout")
	flags.Bool(config.KeyEnableOCR, true, "use OCR when a document has no usable text layer")
	flags.String(config.KeyTableCommand, "tabula", "tabula-compatible command, with leading arguments")
	flags.String(config.KeyTableFlavor, "lattice", "first table extraction mode: lattice, stream")
	flags.Bool(config.KeyTableRetry, true, "retry table extraction in the alternate mode for table parsers")
	flags.String(config.KeyTextCommand, "pdftotext", "text layer command")
}

// bindFlags binds the flags of the running command to viper. Binding at
// run time lets several commands share a setting key.
func bindFlags(cmd *cobra.Command, args []string) error {
	return viper.BindPFlags(cmd.Flags())
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("cli")

	paths, err := collectInputs(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator, err := newOrchestrator(cfg)
	if err != nil {
		return err
	}

	var collector *metrics.Metrics
	if cfg.MetricsFile != "" {
		collector = metrics.New()
		orchestrator.SetRecorder(collector)
	}

	if cfg.Progress {
		showProgress(orchestrator)
	}

	log.WithFields(logger.Fields{
		"documents":   len(paths),
		"concurrency": cfg.Extractor.Concurrency,
		"format":      cfg.Report.Format,
	}).Info("Starting batch extraction")

	batch := extractor.NewBatchProcessor(orchestrator, cfg.Extractor.Concurrency, cfg.Extractor.DocumentTimeout)
	docs := batch.Process(ctx, paths)
	if cfg.Progress {
		fmt.Fprintf(os.Stderr, "\n")
	}

	if err := writeReport(cfg, docs); err != nil {
		return err
	}

	if collector != nil {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			log.WithError(err).Warn("Failed to write metrics textfile")
		}
	}

	summary := extractor.Summarize(docs)
	log.WithFields(logger.Fields{
		"succeeded":    summary.Succeeded,
		"failed":       summary.Failed,
		"transactions": summary.Transactions,
		"observations": summary.Observations,
	}).Info("Batch extraction completed")

	if code := summary.ExitCode(); code != 0 {
		return &BatchError{Summary: summary, Code: code}
	}
	return nil
}

// newOrchestrator wires the extraction adapters, registry and validator
func newOrchestrator(cfg *config.Config) (*extractor.Orchestrator, error) {
	extractors := extraction.NewExtractors(cfg.Extraction, extraction.NewExecRunner())
	orchestrator, err := extractor.NewOrchestrator(extractors, nil, cfg.Extractor)
	if err != nil {
		return nil, err
	}
	orchestrator.SetValidator(validator.New(cfg.Validator))
	return orchestrator, nil
}

// showProgress prints the stage of the most recently updated document
func showProgress(o *extractor.Orchestrator) {
	o.AddProgressCallback(func(p *extractor.DocumentProgress) {
		fmt.Fprintf(os.Stderr, "\r\033[K%s: %s (%d/%d)",
			truncateName(p.Filename, 40), p.Stage, p.Step, p.TotalSteps)
	})
}

func writeReport(cfg *config.Config, docs []*extractor.DocumentContext) error {
	generator, err := reporter.NewSafeReportGenerator(cfg.Report, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	output := os.Stdout
	if cfg.OutputFile != "" {
		file, err := os.Create(cfg.OutputFile)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, cfg.OutputFile, err)
		}
		defer file.Close()
		output = file
	}

	return generator.GenerateSafely(docs, output)
}

// collectInputs expands directories into the PDFs they contain. The result
// keeps argument order, directory entries are sorted by name, and repeated
// paths are kept once.
func collectInputs(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if !seen[key] {
			seen[key] = true
			paths = append(paths, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.FileError(errors.CodeFileNotFound, arg, err)
			}
			return nil, errors.FileError(errors.CodeFilePermission, arg, err)
		}

		if !info.IsDir() {
			if !isPDF(arg) {
				return nil, errors.FileError(errors.CodeNotPDF, arg, nil)
			}
			add(arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, errors.FileError(errors.CodeDirectoryError, arg, err)
		}
		var found []string
		for _, entry := range entries {
			if !entry.IsDir() && isPDF(entry.Name()) {
				found = append(found, filepath.Join(arg, entry.Name()))
			}
		}
		if len(found) == 0 {
			return nil, errors.FileError(errors.CodeDirectoryError, arg, fmt.Errorf("no PDF documents found"))
		}
		sort.Strings(found)
		for _, path := range found {
			add(path)
		}
	}

	return paths, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func truncateName(name string, width int) string {
	runes := []rune(name)
	if len(runes) <= width {
		return name
	}
	return "…" + string(runes[len(runes)-width+1:])
}
