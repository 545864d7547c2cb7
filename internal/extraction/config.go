package extraction

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the external tool settings of the extraction adapters
type Config struct {
	// TableCommand is the tabula-compatible command and its leading
	// arguments, for example ["java", "-jar", "tabula.jar"]
	TableCommand []string `json:"table_command"`
	TableFlavor  Flavor   `json:"table_flavor"`

	TextCommand string `json:"text_command"`

	EnableOCR     bool   `json:"enable_ocr"`
	RenderCommand string `json:"render_command"`
	OCRCommand    string `json:"ocr_command"`
	OCRLanguage   string `json:"ocr_language"`
	QuickDPI      int    `json:"quick_dpi"`
	FullDPI       int    `json:"full_dpi"`

	// CacheTTL keeps extraction results of identical documents. Zero
	// disables the cache.
	CacheTTL time.Duration `json:"cache_ttl"`
}

// DefaultConfig returns the default adapter configuration
func DefaultConfig() *Config {
	return &Config{
		TableCommand:  []string{"tabula"},
		TableFlavor:   FlavorLattice,
		TextCommand:   "pdftotext",
		EnableOCR:     true,
		RenderCommand: "pdftoppm",
		OCRCommand:    "tesseract",
		OCRLanguage:   "spa",
		QuickDPI:      160,
		FullDPI:       300,
		CacheTTL:      30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.TableCommand) == 0 || strings.TrimSpace(c.TableCommand[0]) == "" {
		return fmt.Errorf("table command is required")
	}
	if c.TableFlavor != FlavorLattice && c.TableFlavor != FlavorStream {
		return fmt.Errorf("unknown table flavor %q", c.TableFlavor)
	}
	if strings.TrimSpace(c.TextCommand) == "" {
		return fmt.Errorf("text command is required")
	}
	if c.EnableOCR {
		if strings.TrimSpace(c.RenderCommand) == "" || strings.TrimSpace(c.OCRCommand) == "" {
			return fmt.Errorf("render and OCR commands are required when OCR is enabled")
		}
		if c.QuickDPI <= 0 || c.FullDPI <= 0 {
			return fmt.Errorf("OCR resolutions must be positive, got %d and %d", c.QuickDPI, c.FullDPI)
		}
		if c.QuickDPI > c.FullDPI {
			return fmt.Errorf("quick pass resolution %d exceeds full pass resolution %d", c.QuickDPI, c.FullDPI)
		}
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative, got %s", c.CacheTTL)
	}
	return nil
}
