package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// BatchError reports a batch in which no document produced transactions
type BatchError struct {
	Summary *extractor.BatchSummary
	Code    int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("no transactions extracted from %d document(s)", e.Summary.Documents)
}

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler writing to stderr
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
		out:     os.Stderr,
	}
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	var batchErr *BatchError
	if stderrors.As(err, &batchErr) {
		return h.handleBatchError(batchErr)
	}

	if extractorErr, ok := errors.AsExtractorError(err); ok {
		return h.handleExtractorError(extractorErr)
	}

	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleExtractorError(err *errors.ExtractorError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", getCategoryHelp(err.Category))

	if err.Cause != nil && (h.verbose || err.Category == errors.CategoryConfiguration) {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

func (h *CLIErrorHandler) handleBatchError(err *BatchError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Error())

	summary := err.Summary.Errors
	if summary != nil && summary.Total > 0 {
		codes := make([]string, 0, len(summary.ByCode))
		for code := range summary.ByCode {
			codes = append(codes, string(code))
		}
		sort.Strings(codes)

		fmt.Fprintf(h.out, "\nFailures by code:\n")
		for _, code := range codes {
			fmt.Fprintf(h.out, "  %-22s %d\n", code, summary.ByCode[errors.ErrorCode(code)])
		}

		if h.verbose {
			fmt.Fprintf(h.out, "\nSample failures:\n")
			for _, e := range summary.SampleErrors {
				fmt.Fprintf(h.out, "  - %s\n", e.Error())
			}
		}
	}

	fmt.Fprintf(h.out, "\nSuggestion: run 'extractor detect' on the documents and check the report failures\n")
	return err.Code
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	switch {
	case isFileNotFoundError(err):
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	case isPermissionError(err):
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	case isDiskFullError(err):
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(h.out, "\nRun with --verbose for more details\n")
	}
	return 1
}

// getCategoryHelp returns category-specific help text
func getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that every argument is a PDF or a directory containing PDFs
• Verify the path is correct (use absolute paths if needed)
• Ensure you have permission to read the input and write the output`

	case errors.CategoryExtraction:
		return `Extraction error help:
• Install the external tools: tabula, pdftotext (poppler-utils), pdftoppm and tesseract
• Point to them with --table-command, --text-command or a config file
• Scanned statements need OCR; do not pass --enable-ocr=false for them`

	case errors.CategoryParse:
		return `Parse error help:
• Run 'extractor detect' to see which institution was recognized
• Run 'extractor institutions' to list the supported institutions
• Try --table-flavor stream for statements with borderless tables`

	case errors.CategoryValidation:
		return `Validation error help:
• Check the report observations for balance mismatches
• Adjust --balance-tolerance for statements rounded to whole units`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and EXTRACTOR_* environment variables
• Verify configuration file syntax if using --config
• Use 'extractor extract --help' to see all available options`

	default:
		return `For more help:
• Use 'extractor --help' for general help
• Use 'extractor extract --help' for command-specific help
• Run with --verbose and include the log when reporting a bug`
	}
}

func isFileNotFoundError(err error) bool {
	return os.IsNotExist(err) || stderrors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isPermissionError(err error) bool {
	return os.IsPermission(err) || stderrors.Is(err, os.ErrPermission) ||
		strings.Contains(err.Error(), "permission denied")
}

func isDiskFullError(err error) bool {
	if stderrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") || strings.Contains(errStr, "disk full")
}
