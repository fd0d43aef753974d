package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd is the base command; subcommands attach themselves in init.
var rootCmd = &cobra.Command{
	Use:   "notesynth",
	Short: "Customer transcript intelligence pipeline",
	Long: `Notesynth ingests advisor conversation notes, cleans and anonymizes
them, classifies them against the retail taxonomy, ranks them by
priority and delivers advisor syntheses.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
