package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"transcript-restream-service/internal/config"
	"transcript-restream-service/internal/observability/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "restream",
	Short:         "Replay recorded transcripts and bridge live transcription to webhooks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		bridgeCmd(),
	)
}

// loadConfig reads the environment and initialises the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		logging.Init(logging.DefaultConfig())
		log.Error().Err(err).Msg("Configuration invalid")
		return nil, err
	}

	format := cfg.Observability.LogFormat
	if cfg.IsDevelopment() {
		format = "console"
	}
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: format,
	})
	return cfg, nil
}
