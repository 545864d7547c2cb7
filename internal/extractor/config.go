package extractor

import (
	"fmt"
	"time"

	"golang-statement-extractor/internal/extraction"
)

// Config holds configuration options for the extraction orchestrator
type Config struct {
	// Content thresholds: a strategy only wins when its output has more
	// non-blank characters than these
	MinTextChars int
	MinOCRChars  int

	// Table extraction options
	TableFlavor      extraction.Flavor
	EnableTableRetry bool

	// Batch options
	Concurrency     int
	DocumentTimeout time.Duration
}

// DefaultConfig returns a default configuration for the orchestrator
func DefaultConfig() *Config {
	return &Config{
		MinTextChars:     100,
		MinOCRChars:      50,
		TableFlavor:      extraction.FlavorLattice,
		EnableTableRetry: true,
		Concurrency:      4,
		DocumentTimeout:  2 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.MinTextChars < 0 {
		return fmt.Errorf("minimum text characters cannot be negative, got %d", c.MinTextChars)
	}

	if c.MinOCRChars < 0 {
		return fmt.Errorf("minimum OCR characters cannot be negative, got %d", c.MinOCRChars)
	}

	if c.TableFlavor != extraction.FlavorLattice && c.TableFlavor != extraction.FlavorStream {
		return fmt.Errorf("unknown table flavor %q", c.TableFlavor)
	}

	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}

	if c.DocumentTimeout <= 0 {
		return fmt.Errorf("document timeout must be positive, got %s", c.DocumentTimeout)
	}

	return nil
}
