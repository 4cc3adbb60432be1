package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/nj-housing-tracker/internal/store"
)

func newStatsCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Prints table sizes, commitment statuses and county totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := sess.app.Store().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("collect stats: %w", err)
			}
			printStats(cmd.OutOrStdout(), stats, store.Tables)
			return nil
		},
	}
}
