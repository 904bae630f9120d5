package commands

import (
	"github.com/spf13/cobra"

	"LeafScan/internal/app"
	"LeafScan/internal/config"
)

var (
	cfg    config.Config
	appCtx *app.App
)

// Execute runs the leafscan CLI.
func Execute() error {
	cfg = config.Load()

	root := &cobra.Command{
		Use:          "leafscan",
		Short:        "Detect potato leaf disease with a remote classifier",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			appCtx = a
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return appCtx.Console(cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "classifier predict URL")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "classifier request timeout")
	flags.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for logs, traces and metrics")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "prediction journal database")
	flags.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flags.UintVar(&cfg.PreviewSize, "preview-size", cfg.PreviewSize, "preview thumbnail size in pixels")

	var noTelemetry bool
	flags.BoolVar(&noTelemetry, "no-telemetry", !cfg.Telemetry, "disable trace and metric export")
	cobra.OnInitialize(func() { cfg.Telemetry = !noTelemetry })

	root.AddCommand(predictCmd(), historyCmd())

	err := root.Execute()
	if appCtx != nil {
		appCtx.Close()
	}
	return err
}
