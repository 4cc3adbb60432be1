package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExtractCmd(sess *session) *cobra.Command {
	var (
		force bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "extract [municipality...]",
		Short: "Scrapes municipal sites for affordable housing commitments",
		Long: `Walks each resolved municipality's homepage, planning pages and linked
housing documents, extracts commitments and stores them with their source URL.
With no arguments every municipality in the store is processed. Pages whose
content is unchanged since the last run are skipped unless --force is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names := args
			if len(names) == 0 && limit > 0 {
				munis, err := sess.app.Store().ListMunicipalities(ctx)
				if err != nil {
					return fmt.Errorf("list municipalities: %w", err)
				}
				for _, m := range munis {
					if len(names) == limit {
						break
					}
					if m.Resolved() {
						names = append(names, m.Name)
					}
				}
				if len(names) == 0 {
					sess.logger.Warn("no resolved municipalities to extract")
					return nil
				}
			}

			p, err := sess.app.Pipeline(force)
			if err != nil {
				return fmt.Errorf("init pipeline: %w", err)
			}
			summary, runErr := p.Run(ctx, names)
			sess.logger.Info("extract run finished",
				zap.String("run_id", summary.RunID),
				zap.Int("accepted", summary.Accepted),
				zap.Int("dangling_references", summary.DanglingReferences),
			)
			printSummary(cmd.OutOrStdout(), "Commitment extraction", summary)
			return runErr
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-extract pages whose content has not changed")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many resolved municipalities (ignored when names are given)")
	return cmd
}
