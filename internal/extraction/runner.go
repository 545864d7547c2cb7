package extraction

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"golang-statement-extractor/pkg/errors"
)

// CommandRunner runs an external tool and returns its standard output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command. The error carries the tool's standard error.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, pkgerrors.Wrapf(ctx.Err(), "%s interrupted", name)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, pkgerrors.Wrapf(err, "%s: %s", name, msg)
		}
		return nil, pkgerrors.Wrap(err, name)
	}
	return stdout.Bytes(), nil
}

// toolError classifies a runner failure for one strategy
func toolError(method, path string, err error) error {
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.ExtractionError(errors.CodeToolMissing, method, path, err)
	}
	return errors.ExtractionError(errors.CodeToolFailed, method, path, err)
}
