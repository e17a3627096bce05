package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.beyond.io/tdi-ingest/internal/config"
	"golang.beyond.io/tdi-ingest/pkg/logx"
)

var (
	// Used for flags.
	flagConfig string

	rootCmd = &cobra.Command{
		Use:           "tdi",
		Short:         "Traffic data ingestion from device drop directories",
		Long:          "TDI - picks up traffic reports uploaded by store counters, validates and persists them, and archives the files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"config file path; without it a single FTP pipeline is configured from the environment")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads the configuration and sets up logging.
func initConfig() error {
	var err error
	if flagConfig != "" {
		err = config.Initialize(flagConfig)
	} else {
		err = config.InitializeFromEnv()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	if err := logx.Initialize(config.Get().Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	return nil
}
