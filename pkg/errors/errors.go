package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory groups errors by the pipeline stage that raised them
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryExtraction    ErrorCategory = "extraction"
	CategoryParse         ErrorCategory = "parse"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode identifies a failure precisely; report failures carry it verbatim
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeNotPDF         ErrorCode = "not_pdf"
	CodeDirectoryError ErrorCode = "directory_error"

	// Extraction errors
	CodeToolMissing     ErrorCode = "tool_missing"
	CodeToolFailed      ErrorCode = "tool_failed"
	CodeNoContent       ErrorCode = "no_content"
	CodeDecodeFailed    ErrorCode = "decode_failed"
	CodeNoRelevantPages ErrorCode = "no_relevant_pages"

	// Parse errors
	CodeParserPanic   ErrorCode = "parser_panic"
	CodeNoTransaction ErrorCode = "no_transactions"
	CodeInvalidFormat ErrorCode = "invalid_format"

	// Validation errors
	CodeBalanceMismatch ErrorCode = "balance_mismatch"
	CodeInvalidAmount   ErrorCode = "invalid_amount"
	CodeCorruptedText   ErrorCode = "corrupted_description"

	// Configuration errors
	CodeInvalidConfig   ErrorCode = "invalid_config"
	CodeMissingConfig   ErrorCode = "missing_config"
	CodeUnknownProvider ErrorCode = "unknown_institution"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
	CodeTimeout         ErrorCode = "timeout"
)

// ExtractorError is the base error type for all application errors
type ExtractorError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context holds key/value details printed under the error message
type Context map[string]interface{}

// Error renders the message, cause and suggestion on one line
func (e *ExtractorError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap exposes Cause to errors.Is and errors.As
func (e *ExtractorError) Unwrap() error {
	return e.Cause
}

// GetExitCode maps the category to the process exit status
func (e *ExtractorError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryExtraction, CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext records a detail and returns e for chaining
func (e *ExtractorError) WithContext(key string, value interface{}) *ExtractorError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion sets the hint shown after the message
func (e *ExtractorError) WithSuggestion(suggestion string) *ExtractorError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ExtractorError
func New(category ErrorCategory, code ErrorCode, message string) *ExtractorError {
	return &ExtractorError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ExtractorError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ExtractorError {
	if err == nil {
		return nil
	}

	return &ExtractorError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message, suggestion string, err error) *ExtractorError {
	var result *ExtractorError
	if err != nil {
		result = Wrap(err, category, code, message)
	} else {
		result = New(category, code, message)
	}
	return result.WithSuggestion(suggestion)
}

// FileError reports a problem with an input or output path
func FileError(code ErrorCode, path string, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "pass an existing statement PDF or a directory that contains some"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied: %s", path)
		suggestion = "make sure the statement is readable and the output location writable"
	case CodeNotPDF:
		message = fmt.Sprintf("not a PDF document: %s", path)
		suggestion = "only .pdf statements are supported"
	case CodeDirectoryError:
		message = fmt.Sprintf("directory error: %s", path)
		suggestion = "the directory must exist and hold at least one .pdf file"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "verify the path and retry"
	}

	return build(CategoryFile, code, message, suggestion, err).
		WithContext("file_path", path)
}

// ExtractionError creates an error raised by one extraction strategy
func ExtractionError(code ErrorCode, method, path string, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeToolMissing:
		message = fmt.Sprintf("%s extraction tool is not available", method)
		suggestion = "install the external tool or disable this extraction method"
	case CodeToolFailed:
		message = fmt.Sprintf("%s extraction failed for %s", method, path)
		suggestion = "check that the PDF is not encrypted or damaged"
	case CodeNoContent:
		message = fmt.Sprintf("%s extraction produced no content for %s", method, path)
		suggestion = "the document may be scanned; enable OCR"
	case CodeDecodeFailed:
		message = fmt.Sprintf("could not decode %s output for %s", method, path)
		suggestion = "check the version of the external tool"
	case CodeNoRelevantPages:
		message = fmt.Sprintf("no page of %s looks like a statement", path)
		suggestion = "verify the document contains a movements table"
	default:
		message = fmt.Sprintf("%s extraction error for %s", method, path)
		suggestion = "try again with a different extraction method"
	}

	return build(CategoryExtraction, code, message, suggestion, err).
		WithContext("method", method).
		WithContext("file_path", path)
}

// ParseError reports an institution parser that could not read a document
func ParseError(code ErrorCode, institution, file string, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeParserPanic:
		message = fmt.Sprintf("%s parser crashed on %s", institution, file)
		suggestion = "this is likely a bug - please report it with the document layout"
	case CodeNoTransaction:
		message = fmt.Sprintf("%s parser found no transactions in %s", institution, file)
		suggestion = "the layout may have changed; try the generic parser"
	case CodeInvalidFormat:
		message = fmt.Sprintf("unexpected layout for %s in %s", institution, file)
		suggestion = "check the statement format"
	default:
		message = fmt.Sprintf("parse error for %s in %s", institution, file)
		suggestion = "check the document format and data integrity"
	}

	return build(CategoryParse, code, message, suggestion, err).
		WithContext("institution", institution).
		WithContext("file", file)
}

// ValidationError reports a field that failed a post-parse check
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeBalanceMismatch:
		message = fmt.Sprintf("balance mismatch in '%s': %v", field, value)
		suggestion = "review the source row; a movement may be missing"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in field '%s': %v", field, value)
		suggestion = "amounts use 1.234,56 or 1,234.56 notation"
	case CodeCorruptedText:
		message = fmt.Sprintf("unreadable text in field '%s': %v", field, value)
		suggestion = "the text layer may be damaged; try OCR"
	default:
		message = fmt.Sprintf("field '%s' failed validation: %v", field, value)
		suggestion = "inspect the parsed transaction in the report"
	}

	return build(CategoryValidation, code, message, suggestion, err).
		WithContext("field", field).
		WithContext("value", value)
}

// ConfigurationError reports a bad flag, env var or config file entry
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "run 'extractor extract --help' for accepted values"
	case CodeMissingConfig:
		message = fmt.Sprintf("configuration %s is required", setting)
		suggestion = "set it with a flag, an EXTRACTOR_* variable or --config"
	case CodeUnknownProvider:
		message = fmt.Sprintf("unknown institution '%v'", value)
		suggestion = "run 'extractor institutions' to list the supported identifiers"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "review flags, environment and config file"
	}

	return build(CategoryConfiguration, code, message, suggestion, err).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError reports a failure that is not the caller's fault
func InternalError(code ErrorCode, operation string, err error) *ExtractorError {
	var message, suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "rerun with --verbose and report the log"
	case CodeTimeout:
		message = fmt.Sprintf("timeout during %s", operation)
		suggestion = "increase the per-document timeout"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "retry; if it keeps failing, report it with the verbose log"
	}

	return build(CategoryInternal, code, message, suggestion, err).
		WithContext("operation", operation)
}

// ErrorSummary aggregates the failures of a batch run
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ExtractorError     `json:"errors"`
	SampleErrors []*ExtractorError     `json:"sample_errors,omitempty"`
}

// NewErrorSummary counts errs by category and code and keeps a few samples
func NewErrorSummary(errs []*ExtractorError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}
	if len(errs) == 0 {
		summary.Errors = []*ExtractorError{}
		return summary
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	const maxSamples = 5
	if len(errs) > maxSamples {
		summary.SampleErrors = errs[:maxSamples]
	} else {
		summary.SampleErrors = errs
	}

	return summary
}

// Error describes the summary in one line
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}
	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	categories := make([]string, 0, len(es.ByCategory))
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}
	sort.Strings(categories)

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory reports whether any error belongs to category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	return es.ByCategory[category] > 0
}

// HasCode reports whether any error carries code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the most severe exit status among the errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range es.Errors {
		if code := err.GetExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}

// AsExtractorError extracts an ExtractorError from an error chain
func AsExtractorError(err error) (*ExtractorError, bool) {
	var extractorErr *ExtractorError
	if errors.As(err, &extractorErr) {
		return extractorErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already an ExtractorError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ExtractorError {
	if err == nil {
		return nil
	}
	if extractorErr, ok := AsExtractorError(err); ok {
		return extractorErr
	}
	return Wrap(err, category, code, message)
}
