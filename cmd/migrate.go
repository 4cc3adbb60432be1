package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCmd applies the schema. Opening the store already migrates it, so the
// command only reports the result.
func newMigrateCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates or upgrades the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := sess.app.Store().Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", sess.cfg.Store.Driver)
			return nil
		},
	}
}
