package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newObligationsCmd(sess *session) *cobra.Command {
	var createMissing bool
	cmd := &cobra.Command{
		Use:   "obligations <workbook.xlsx>",
		Short: "Loads the DCA Fourth Round obligations workbook",
		Long: `Reads the "Final Summary" sheet of the DCA Fourth Round calculation workbook
and stores each municipality's present and prospective need. Municipalities
missing from the store are registered with their county unless
--create-missing=false.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := sess.app.ObligationsLoader(createMissing)
			if err != nil {
				return err
			}
			summary, err := loader.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load obligations: %w", err)
			}

			t := newTable(cmd.OutOrStdout())
			t.SetTitle("Fourth Round obligations")
			t.AppendHeader(table.Row{"Outcome", "Count"})
			t.AppendRows([]table.Row{
				{"Loaded", summary.Loaded},
				{"Municipalities registered", summary.Created},
				{"Not found", summary.NotFound},
			})
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&createMissing, "create-missing", true, "register municipalities that are not in the store yet")
	return cmd
}
