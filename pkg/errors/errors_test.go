package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestExtractorError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "extraction error",
			category:   CategoryExtraction,
			code:       CodeToolFailed,
			message:    "pdftotext failed",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "internal error",
			category:   CategoryInternal,
			code:       CodeTimeout,
			message:    "deadline exceeded",
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ExtractorError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a stack trace")
			}
		})
	}
}

func TestExtractorErrorWithContext(t *testing.T) {
	err := New(CategoryParse, CodeInvalidFormat, "test error").
		WithContext("file", "macro.pdf").
		WithContext("row", 42).
		WithSuggestion("check layout")

	if err.Context["file"] != "macro.pdf" {
		t.Errorf("expected file context, got %v", err.Context["file"])
	}
	if err.Context["row"] != 42 {
		t.Errorf("expected row context 42, got %v", err.Context["row"])
	}

	expected := "test error (suggestion: check layout)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		err := FileError(CodeNotPDF, "/tmp/statement.txt", nil)
		if err.Category != CategoryFile || err.Code != CodeNotPDF {
			t.Errorf("unexpected category/code %s/%s", err.Category, err.Code)
		}
		if err.Context["file_path"] != "/tmp/statement.txt" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
	})

	t.Run("ExtractionError", func(t *testing.T) {
		cause := errors.New("exit status 1")
		err := ExtractionError(CodeToolFailed, "tables", "a.pdf", cause)
		if err.Category != CategoryExtraction {
			t.Errorf("expected extraction category, got %s", err.Category)
		}
		if err.Context["method"] != "tables" {
			t.Errorf("expected method context, got %v", err.Context["method"])
		}
		if !errors.Is(err, cause) {
			t.Error("expected cause in chain")
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeParserPanic, "GALICIA", "g.pdf", fmt.Errorf("index out of range"))
		if err.Context["institution"] != "GALICIA" {
			t.Errorf("expected institution context, got %v", err.Context["institution"])
		}
		if err.GetExitCode() != 3 {
			t.Errorf("expected exit code 3, got %d", err.GetExitCode())
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeBalanceMismatch, "saldo", "1250.00", nil)
		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeUnknownProvider, "institution", "FOO", nil)
		if err.Context["value"] != "FOO" {
			t.Errorf("expected value context, got %v", err.Context["value"])
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		err := InternalError(CodeUnexpectedError, "batch", errors.New("boom"))
		if err.GetExitCode() != 5 {
			t.Errorf("expected exit code 5, got %d", err.GetExitCode())
		}
	})
}

func TestErrorSummary(t *testing.T) {
	empty := NewErrorSummary(nil)
	if empty.Total != 0 || empty.Error() != "no errors" || empty.GetExitCode() != 0 {
		t.Errorf("unexpected empty summary: %+v", empty)
	}

	errs := []*ExtractorError{
		FileError(CodeFileNotFound, "a.pdf", nil),
		ExtractionError(CodeNoContent, "text", "b.pdf", nil),
		ExtractionError(CodeToolMissing, "ocr", "b.pdf", nil),
		ConfigurationError(CodeInvalidConfig, "concurrency", 0, nil),
	}
	summary := NewErrorSummary(errs)

	if summary.Total != 4 {
		t.Errorf("expected 4 errors, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryExtraction] != 2 {
		t.Errorf("expected 2 extraction errors, got %d", summary.ByCategory[CategoryExtraction])
	}
	if !summary.HasCategory(CategoryFile) || summary.HasCategory(CategoryInternal) {
		t.Error("unexpected HasCategory result")
	}
	if !summary.HasCode(CodeToolMissing) {
		t.Error("expected tool_missing code")
	}
	if summary.GetExitCode() != 4 {
		t.Errorf("expected exit code 4, got %d", summary.GetExitCode())
	}
	expected := "4 errors occurred (configuration: 1, extraction: 2, file: 1)"
	if summary.Error() != expected {
		t.Errorf("expected %q, got %q", expected, summary.Error())
	}
}

func TestAsExtractorErrorAndWrapIfNeeded(t *testing.T) {
	original := ParseError(CodeNoTransaction, "MACRO", "m.pdf", nil)
	wrapped := fmt.Errorf("context: %w", original)

	got, ok := AsExtractorError(wrapped)
	if !ok || got != original {
		t.Fatalf("expected to find original error in chain")
	}

	if WrapIfNeeded(wrapped, CategoryInternal, CodeUnexpectedError, "x") != original {
		t.Error("WrapIfNeeded should return the existing ExtractorError")
	}

	plain := errors.New("plain")
	result := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "wrapped")
	if result.Category != CategoryInternal || result.Cause != plain {
		t.Errorf("unexpected wrap result %+v", result)
	}

	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected nil for nil error")
	}
	if _, ok := AsExtractorError(plain); ok {
		t.Error("plain error is not an ExtractorError")
	}
}
