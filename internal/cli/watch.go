package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Jennie1434/BDD-lvmh/internal/app"
	"github.com/Jennie1434/BDD-lvmh/internal/config"
	"github.com/Jennie1434/BDD-lvmh/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run batches on the configured schedule",
	Long:  `Starts the cron scheduler and processes batches until interrupted.`,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Watch(ctx)
}
