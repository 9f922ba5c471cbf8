package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "schedopt"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Workforce schedule optimization core",
		Version: version,
		Long: `schedopt analyzes coverage gaps, evolves candidate shift patterns,
validates them against labor rules, prices them, and ranks the results.

Subcommands operate on YAML run files so the pipeline can be exercised
without a metrics store; point --config at a tuning file to override the
production defaults.`,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a YAML tuning file (defaults apply when empty)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	rootCmd.AddCommand(newOptimizeCmd(), newGapsCmd(), newBulkCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
