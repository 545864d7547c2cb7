package extractor

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"golang-statement-extractor/internal/models"
	"golang-statement-extractor/internal/validator"
	"golang-statement-extractor/pkg/errors"
)

// Fallback kinds recorded on a document
const (
	FallbackTableRetry = "table_retry"
	FallbackGeneric    = "generic"
)

// DocumentContext carries everything learned about one document through the
// pipeline. Each document owns its records; nothing is shared between
// documents.
type DocumentContext struct {
	ID          string                  `json:"id"`
	Path        string                  `json:"path"`
	Filename    string                  `json:"filename"`
	YearHint    int                     `json:"year_hint,omitempty"`
	Institution string                  `json:"institution"`
	Parser      string                  `json:"parser"`
	Method      models.ExtractionMethod `json:"method"`
	Pages       int                     `json:"pages"`

	Attempts  []Attempt `json:"attempts"`
	Fallbacks []string  `json:"fallbacks,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`

	Transactions []models.Transaction `json:"transactions"`
	Report       validator.Report     `json:"report"`

	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
	Timings   map[string]time.Duration `json:"timings"`
}

// Attempt is one run of an extraction strategy
type Attempt struct {
	Strategy models.ExtractionMethod `json:"strategy"`
	Flavor   string                  `json:"flavor,omitempty"`
	Items    int                     `json:"items"`
	Accepted bool                    `json:"accepted"`
	Duration time.Duration           `json:"duration"`
	Error    string                  `json:"error,omitempty"`
}

// Failure is a recorded, non-fatal problem
type Failure struct {
	Stage    string                 `json:"stage"`
	Category errors.ErrorCategory   `json:"category"`
	Code     errors.ErrorCode       `json:"code"`
	Message  string                 `json:"message"`
	Err      *errors.ExtractorError `json:"-"`
}

func newDocument(path, filenameHint string) *DocumentContext {
	filename := filenameHint
	if filename == "" {
		filename = filepath.Base(path)
	}
	return &DocumentContext{
		ID:        uuid.New().String(),
		Path:      path,
		Filename:  filename,
		Method:    models.MethodNone,
		StartedAt: time.Now(),
		Timings:   make(map[string]time.Duration),
	}
}

// Succeeded reports whether the document produced records
func (d *DocumentContext) Succeeded() bool {
	return len(d.Transactions) > 0
}

// Errors returns the recorded failures as application errors
func (d *DocumentContext) Errors() []*errors.ExtractorError {
	errs := make([]*errors.ExtractorError, 0, len(d.Failures))
	for _, f := range d.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

func (d *DocumentContext) addFailure(stage string, err error) *errors.ExtractorError {
	e := errors.WrapIfNeeded(err, errors.CategoryInternal, errors.CodeUnexpectedError, stage+" failed")
	d.Failures = append(d.Failures, Failure{
		Stage:    stage,
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Error(),
		Err:      e,
	})
	return e
}

func (d *DocumentContext) track(stage string, start time.Time) {
	d.Timings[stage] += time.Since(start)
}
