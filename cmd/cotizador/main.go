package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cotizador/internal/common/config"
	"cotizador/internal/common/logger"
)

var (
	configPath string
	logLevel   string
)

// rootCmd is the quoting tool.
var rootCmd = &cobra.Command{
	Use:   "cotizador",
	Short: "Health insurance quoting tool",
	Long: `Quotes health insurance plans against the prepared catalog, serves
the quoting API and renders PDF proposals.

Available subcommands:
  serve    - Run the HTTP API
  quote    - Run one search from the command line
  folio    - Inspect and advance the proposal counter
  catalog  - Inspect the loaded catalog
  registry - Inspect the worker activity registry`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(folioCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, logger.Logger) {
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	return zapLog, logger.NewZapAdapter(zapLog)
}
