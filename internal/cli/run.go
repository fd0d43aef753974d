package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Jennie1434/BDD-lvmh/internal/app"
	"github.com/Jennie1434/BDD-lvmh/internal/config"
	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/logging"
)

var (
	runInput  string
	runOutput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one batch of transcripts",
	Long: `Reads the configured source, runs the full pipeline once and writes
the outcomes to the configured export file.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runInput, "input", "i", "", "override the source path")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "override the export path")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if runInput != "" {
		cfg.Source.Path = runInput
	}
	if runOutput != "" {
		cfg.Export.Path = runOutput
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcomes, err := application.RunOnce(ctx)
	if err != nil {
		return err
	}

	printSummary(cmd, outcomes)
	return nil
}

func printSummary(cmd *cobra.Command, outcomes []domain.Outcome) {
	var success, fallback, failed int
	for _, o := range outcomes {
		switch o.Status {
		case domain.StatusSuccess:
			success++
		case domain.StatusFallback:
			fallback++
		case domain.StatusError:
			failed++
		}
	}
	cmd.Printf("Processed %d records: %d success, %d fallback, %d error\n",
		len(outcomes), success, fallback, failed)
}
