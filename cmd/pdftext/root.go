package main

import (
	"github.com/spf13/cobra"

	"github.com/pagelens/pdftext/internal/config"
	"github.com/pagelens/pdftext/internal/observability"
)

const version = "1.0.0"

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "pdftext",
	Short:   "Extract text from PDF documents with a hosted vision model",
	Version: version,
	Long: `pdftext rasterizes each page of a PDF and sends it to an
OpenAI-compatible vision endpoint for verbatim transcription.

Requires DEEPINFRA_API_KEY in the environment or a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
}

// loadConfig loads configuration and builds the logger, honoring --verbose.
func loadConfig() (*config.Config, *observability.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      cfg.LogFormat,
		ServiceName: "pdftext",
	})
	return cfg, logger, nil
}
