package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.beyond.io/tdi-ingest/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "tdi", version.String())
	},
}
