package cmd

import (
	"fmt"

	"routeops/internal/app/bootstrap"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the outbox relay and reassignment reconciler",
	Long: `worker polls the lease outbox and publishes pending events, and sweeps
held leases to repair delivery holders left behind by a failed
reassignment.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().String("nats-url", "", "NATS server URL; empty relays events in-process")
	workerCmd.Flags().Duration("poll-interval", 0, "delay between worker cycles")
	_ = viper.BindPFlag("nats_url", workerCmd.Flags().Lookup("nats-url"))
	_ = viper.BindPFlag("worker_poll_interval", workerCmd.Flags().Lookup("poll-interval"))
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	app, err := bootstrap.BuildWorker()
	if err != nil {
		return fmt.Errorf("bootstrap worker: %w", err)
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signalContext()
	defer stop()
	return app.Run(ctx)
}
