package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(t *testing.T, level Level) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log, err := NewLogger(&Config{Level: level, Format: JSONFormat, Output: StdoutOutput, Writer: &buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return log, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestFieldsAccumulate(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)

	log.WithComponent("extractor").
		WithField("document", "galicia.pdf").
		WithFields(Fields{"institution": "GALICIA"}).
		Info("parsed")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	for key, want := range map[string]string{
		"component":   "extractor",
		"document":    "galicia.pdf",
		"institution": "GALICIA",
		"msg":         "parsed",
	} {
		if entry[key] != want {
			t.Errorf("field %s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestWithErrorAndLevel(t *testing.T) {
	log, buf := newBufferLogger(t, WarnLevel)

	log.Info("hidden")
	log.WithError(errors.New("boom")).Warn("visible")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0]["error"] != "boom" {
		t.Errorf("error field = %v", entries[0]["error"])
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", *DefaultConfig(), false},
		{"debug", *DebugConfig(), false},
		{"bad level", Config{Level: "trace", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"file without path", Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProgressTracker(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)
	tracker := NewProgressTracker(ProgressConfig{Operation: "batch", Total: 2, LogInterval: time.Hour, Logger: log})

	tracker.Done(false)
	tracker.Done(true)
	tracker.Complete()

	stats := tracker.GetStats()
	if stats.Current != 2 || stats.Failed != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Percentage != 100 {
		t.Errorf("percentage = %v", stats.Percentage)
	}
	if !strings.Contains(stats.String(), "2/2") {
		t.Errorf("String() = %q", stats.String())
	}
	if !strings.Contains(buf.String(), "Operation completed") {
		t.Errorf("missing completion entry: %s", buf.String())
	}
}

func TestTimedOperation(t *testing.T) {
	log, buf := newBufferLogger(t, InfoLevel)
	want := errors.New("failed")

	if got := TimedOperation("extract", log, func() error { return want }); got != want {
		t.Errorf("TimedOperation() = %v", got)
	}
	if !strings.Contains(buf.String(), "Operation failed") {
		t.Errorf("expected failure log, got %s", buf.String())
	}
}
