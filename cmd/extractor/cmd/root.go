package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"golang-statement-extractor/cmd/extractor/config"
	"golang-statement-extractor/pkg/errors"
	"golang-statement-extractor/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "extractor",
	Short: "Bank statement transaction extractor",
	Long: `Extractor reads bank and wallet statement PDFs and turns them into
normalized transaction records. Each document goes through table extraction,
the text layer and OCR until one yields content, the issuing institution is
detected, and the matching parser emits dated debit and credit movements
with running balances.

Settings can be given as flags, in a config file (--config) or as
EXTRACTOR_* environment variables. A .env file in the working directory is
loaded first.

Examples:
  extractor extract statements/
  extractor extract galicia_abril.pdf santander_2024.pdf --output-format json
  extractor extract statements/ -f xlsx -o extractos.xlsx --progress
  extractor detect resumen.pdf
  extractor institutions`,
	Version:       getVersionString(),
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return NewCLIErrorHandler().HandleError(err)
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String(config.KeyLogFormat, "text", "log format: text, json")
	rootCmd.PersistentFlags().String(config.KeyLogFile, "", "write logs to this file instead of stderr")

	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup(config.KeyLogLevel))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup(config.KeyLogFormat))
	viper.BindPFlag(config.KeyLogFile, rootCmd.PersistentFlags().Lookup(config.KeyLogFile))
}

// initConfig reads the .env file, the config file and ENV variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error reading .env file: %s\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(4)
		}

		if viper.GetBool(config.KeyVerbose) {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	viper.SetEnvPrefix("EXTRACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig builds the run configuration and installs the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		if _, ok := errors.AsExtractorError(err); ok {
			return nil, err
		}
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "configuration", cfgFile, err)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "logging", cfg.Logger.Level, err)
	}
	logger.SetGlobalLogger(log)
	return cfg, nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
