package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"golang-statement-extractor/internal/extraction"
	"golang-statement-extractor/internal/extractor"
	"golang-statement-extractor/internal/reporter"
	"golang-statement-extractor/internal/validator"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

// Setting keys shared by flags, config files and EXTRACTOR_* variables
const (
	KeyOutputFormat      = "output-format"
	KeyOutputFile        = "output-file"
	KeyConcurrency       = "concurrency"
	KeyTimeout           = "timeout"
	KeyEnableOCR         = "enable-ocr"
	KeyTableCommand      = "table-command"
	KeyTableFlavor       = "table-flavor"
	KeyTableRetry        = "table-retry"
	KeyTextCommand       = "text-command"
	KeyRenderCommand     = "render-command"
	KeyOCRCommand        = "ocr-command"
	KeyOCRLanguage       = "ocr-language"
	KeyCacheTTL          = "cache-ttl"
	KeyMinTextChars      = "min-text-chars"
	KeyMinOCRChars       = "min-ocr-chars"
	KeyBalanceTolerance  = "balance-tolerance"
	KeyMetricsFile       = "metrics-file"
	KeyProgress          = "progress"
	KeyIncludeAttempts   = "include-attempts"
	KeyMaxRows           = "max-rows"
	KeyCSVDelimiter      = "csv-delimiter"
	KeyConsolidatedSheet = "consolidated-sheet"
	KeyLogLevel          = "log-level"
	KeyLogFormat         = "log-format"
	KeyLogFile           = "log-file"
	KeyVerbose           = "verbose"
)

// Config is the complete configuration of one CLI run
type Config struct {
	Extraction *extraction.Config
	Extractor  *extractor.Config
	Validator  *validator.Config
	Report     *reporter.ReportConfig
	Logger     *logger.Config

	OutputFile  string
	MetricsFile string
	Progress    bool
}

// SetDefaults registers the default value of every setting on v
func SetDefaults(v *viper.Viper) {
	ext := extraction.DefaultConfig()
	orch := extractor.DefaultConfig()
	report := reporter.DefaultReportConfig()
	val := validator.DefaultConfig()

	v.SetDefault(KeyOutputFormat, string(report.Format))
	v.SetDefault(KeyConcurrency, orch.Concurrency)
	v.SetDefault(KeyTimeout, orch.DocumentTimeout)
	v.SetDefault(KeyEnableOCR, ext.EnableOCR)
	v.SetDefault(KeyTableCommand, strings.Join(ext.TableCommand, " "))
	v.SetDefault(KeyTableFlavor, string(ext.TableFlavor))
	v.SetDefault(KeyTableRetry, orch.EnableTableRetry)
	v.SetDefault(KeyTextCommand, ext.TextCommand)
	v.SetDefault(KeyRenderCommand, ext.RenderCommand)
	v.SetDefault(KeyOCRCommand, ext.OCRCommand)
	v.SetDefault(KeyOCRLanguage, ext.OCRLanguage)
	v.SetDefault(KeyCacheTTL, ext.CacheTTL)
	v.SetDefault(KeyMinTextChars, orch.MinTextChars)
	v.SetDefault(KeyMinOCRChars, orch.MinOCRChars)
	v.SetDefault(KeyBalanceTolerance, val.Tolerance.String())
	v.SetDefault(KeyMaxRows, report.MaxConsoleRows)
	v.SetDefault(KeyCSVDelimiter, string(report.CSVDelimiter))
	v.SetDefault(KeyConsolidatedSheet, report.ConsolidatedSheet)
	v.SetDefault(KeyLogLevel, string(logger.InfoLevel))
	v.SetDefault(KeyLogFormat, string(logger.TextFormat))
}

// Load builds the configuration from the settings held by v
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	tolerance, err := decimal.NewFromString(v.GetString(KeyBalanceTolerance))
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", KeyBalanceTolerance, v.GetString(KeyBalanceTolerance), err)
	}

	delimiter, err := parseDelimiter(v.GetString(KeyCSVDelimiter))
	if err != nil {
		return nil, err
	}

	flavor := extraction.Flavor(strings.ToLower(v.GetString(KeyTableFlavor)))

	ext := extraction.DefaultConfig()
	ext.TableCommand = strings.Fields(v.GetString(KeyTableCommand))
	ext.TableFlavor = flavor
	ext.TextCommand = v.GetString(KeyTextCommand)
	ext.EnableOCR = v.GetBool(KeyEnableOCR)
	ext.RenderCommand = v.GetString(KeyRenderCommand)
	ext.OCRCommand = v.GetString(KeyOCRCommand)
	ext.OCRLanguage = v.GetString(KeyOCRLanguage)
	ext.CacheTTL = v.GetDuration(KeyCacheTTL)

	orch := extractor.DefaultConfig()
	orch.MinTextChars = v.GetInt(KeyMinTextChars)
	orch.MinOCRChars = v.GetInt(KeyMinOCRChars)
	orch.TableFlavor = flavor
	orch.EnableTableRetry = v.GetBool(KeyTableRetry)
	orch.Concurrency = v.GetInt(KeyConcurrency)
	orch.DocumentTimeout = v.GetDuration(KeyTimeout)

	val := validator.DefaultConfig()
	val.Tolerance = tolerance

	report := reporter.DefaultReportConfig()
	report.Format = reporter.OutputFormat(strings.ToLower(v.GetString(KeyOutputFormat)))
	report.IncludeAttempts = v.GetBool(KeyIncludeAttempts)
	report.MaxConsoleRows = v.GetInt(KeyMaxRows)
	report.CSVDelimiter = delimiter
	report.ConsolidatedSheet = v.GetString(KeyConsolidatedSheet)

	logConfig := logger.DefaultConfig()
	logConfig.Level = logger.Level(strings.ToLower(v.GetString(KeyLogLevel)))
	logConfig.Format = logger.Format(strings.ToLower(v.GetString(KeyLogFormat)))
	if file := v.GetString(KeyLogFile); file != "" {
		logConfig.Output = logger.FileOutput
		logConfig.File = file
	}
	if v.GetBool(KeyVerbose) {
		logConfig.Level = logger.DebugLevel
	}

	config := &Config{
		Extraction:  ext,
		Extractor:   orch,
		Validator:   val,
		Report:      report,
		Logger:      logConfig,
		OutputFile:  v.GetString(KeyOutputFile),
		MetricsFile: v.GetString(KeyMetricsFile),
		Progress:    v.GetBool(KeyProgress),
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate validates every section of the configuration
func (c *Config) Validate() error {
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("invalid extraction config: %w", err)
	}
	if err := c.Extractor.Validate(); err != nil {
		return fmt.Errorf("invalid orchestrator config: %w", err)
	}
	if err := c.Validator.Validate(); err != nil {
		return fmt.Errorf("invalid validator config: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("invalid report config: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("invalid logger config: %w", err)
	}
	if c.Report.Format.IsBinary() && c.OutputFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, KeyOutputFile, c.Report.Format, nil).
			WithSuggestion(fmt.Sprintf("%s output requires --%s", c.Report.Format, KeyOutputFile))
	}
	return nil
}

// parseDelimiter accepts a single character or the names "tab" and
// "semicolon"
func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid %s %q: expected a single character", KeyCSVDelimiter, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

