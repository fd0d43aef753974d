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

var (
	transferFrom string
	transferTo   string
)

var transferCmd = &cobra.Command{
	Use:   "transfer <record-id>",
	Short: "Propose reattributing a client record to another advisor",
	Long: `Reprocesses one record from the source and runs the offer/decision/
transfer handshake against the configured recipient. No reply within the
decision wait counts as a reject.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransfer,
}

func init() {
	transferCmd.Flags().StringVar(&transferFrom, "from", "", "proposing advisor")
	transferCmd.Flags().StringVar(&transferTo, "to", "", "receiving advisor")
	_ = transferCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(transferCmd)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := application.Transfer(ctx, args[0], transferFrom, transferTo)
	if err != nil {
		return err
	}

	switch {
	case result.Transferred:
		cmd.Printf("Record %s transferred to %s\n", args[0], transferTo)
	case result.Accepted:
		cmd.Printf("Offer accepted, transfer channel not configured\n")
	case result.TimedOut:
		cmd.Printf("No reply within the decision wait, offer treated as rejected\n")
	default:
		cmd.Printf("Offer rejected\n")
	}
	return nil
}
