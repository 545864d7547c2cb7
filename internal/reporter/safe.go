package reporter

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with error handling and fallbacks.
// The report is rendered in memory first so a failed format never leaves a
// truncated report behind.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("check the output format and report options")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateSafely renders the report and writes it to writer. When the
// configured format fails the report is rendered as JSON instead, and when
// writing to a file fails it is saved next to it with a _backup suffix.
func (srg *SafeReportGenerator) GenerateSafely(docs []*extractor.DocumentContext, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format":    srg.config.Format,
		"output":    getWriterDescription(writer),
		"documents": len(docs),
	}).Info("Starting report generation")

	if err := srg.validateInputs(docs, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	var buf bytes.Buffer
	if err := srg.render(docs, &buf); err != nil {
		return err
	}

	if _, err := buf.WriteTo(writer); err != nil {
		if srg.shouldAttemptOutputFallback(err, writer) {
			return srg.writeBackup(buf.Bytes(), writer.(*os.File).Name(), err)
		}
		return srg.wrapGenerationError(err)
	}

	srg.logger.Info("Report generation completed successfully")
	return nil
}

func (srg *SafeReportGenerator) validateInputs(docs []*extractor.DocumentContext, writer io.Writer) error {
	if docs == nil {
		return errors.ValidationError(
			errors.CodeInvalidFormat,
			"documents",
			nil,
			nil,
		).WithSuggestion("provide at least one extracted document")
	}

	if writer == nil {
		return errors.ValidationError(
			errors.CodeInvalidFormat,
			"writer",
			nil,
			nil,
		).WithSuggestion("provide a valid output writer")
	}

	return nil
}

// render generates the report, falling back to another format on failure
func (srg *SafeReportGenerator) render(docs []*extractor.DocumentContext, buf *bytes.Buffer) error {
	err := srg.Generate(docs, buf)
	if err == nil {
		return nil
	}

	fallback := FormatJSON
	if srg.config.Format == FormatJSON {
		fallback = FormatConsole
	}
	srg.logger.WithError(err).WithField("fallback_format", fallback).Warn("Primary report generation failed, attempting format fallback")

	fallbackConfig := *srg.config
	fallbackConfig.Format = fallback
	fallbackGenerator, cfgErr := NewReportGenerator(&fallbackConfig)
	if cfgErr != nil {
		return srg.wrapGenerationError(err)
	}

	buf.Reset()
	if fbErr := fallbackGenerator.Generate(docs, buf); fbErr != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", err, fbErr),
		)
	}

	srg.logger.WithField("format", fallback).Warn("Report generated using format fallback")
	return nil
}

func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	if file, ok := writer.(*os.File); ok && file.Name() != "" && file != os.Stdout && file != os.Stderr {
		return isFileError(err)
	}
	return false
}

func (srg *SafeReportGenerator) writeBackup(content []byte, originalPath string, originalErr error) error {
	backupPath := generateBackupPath(originalPath)
	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Warn("Attempting output fallback")

	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return errors.FileError(
			errors.CodeFilePermission,
			originalPath,
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err),
		)
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report saved to backup location")
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if extractorErr, ok := errors.AsExtractorError(err); ok {
		return extractorErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report_generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

func isFileError(err error) bool {
	return os.IsPermission(err) ||
		os.IsNotExist(err) ||
		stderrors.Is(err, syscall.ENOSPC) ||
		stderrors.Is(err, os.ErrClosed)
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
