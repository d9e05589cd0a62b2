package cmd

import (
	"fmt"

	"routeops/internal/app/bootstrap"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the route lease HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("http-port", "", "HTTP listen port")
	_ = viper.BindPFlag("http_port", serveCmd.Flags().Lookup("http-port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	app, err := bootstrap.BuildAPI()
	if err != nil {
		return fmt.Errorf("bootstrap api: %w", err)
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signalContext()
	defer stop()
	return app.Run(ctx)
}
