package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"LeafScan/internal/display"
	"LeafScan/internal/session"
)

var errPredictionFailed = errors.New("prediction failed")

// predict <file>: one select-submit-render cycle.
func predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict <file>",
		Short: "Classify a single leaf image and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := session.LoadImage(args[0])
			if err != nil {
				return err
			}

			ctrl := appCtx.Controller
			if err := ctrl.SetImage(img); err != nil {
				return err
			}
			ctrl.Submit(cmd.Context())

			snap := ctrl.Read()
			display.Render(cmd.OutOrStdout(), snap)
			if snap.Phase != session.PhaseSucceeded {
				return errPredictionFailed
			}
			return nil
		},
	}
}
