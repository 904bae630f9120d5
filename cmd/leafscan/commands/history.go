package commands

import (
	"github.com/spf13/cobra"

	"LeafScan/internal/console"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent predictions from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := appCtx.Journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			console.PrintHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of predictions to show")
	return cmd
}
