package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/export"
	"github.com/JakeFAU/nj-housing-tracker/internal/housing"
)

func newExportCmd(sess *session) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes stored data as YAML or CSV",
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "websites",
			Short: "Writes resolved municipality websites as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				munis, err := sess.app.Store().ListMunicipalities(cmd.Context())
				if err != nil {
					return fmt.Errorf("list municipalities: %w", err)
				}
				return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
					return export.Websites(w, munis)
				})
			},
		},
		&cobra.Command{
			Use:   "commitments [municipality]",
			Short: "Writes commitments as CSV",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var municipality string
				if len(args) == 1 {
					municipality = args[0]
				}
				commitments, err := sess.app.Store().ListCommitments(cmd.Context(), municipality)
				if err != nil {
					return fmt.Errorf("list commitments: %w", err)
				}
				return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
					return export.Commitments(w, commitments)
				})
			},
		},
	)
	return cmd
}

func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// newLoadWebsitesCmd imports a file written by "export websites", so a reviewed
// mapping can be carried between stores.
func newLoadWebsitesCmd(sess *session) *cobra.Command {
	return &cobra.Command{
		Use:   "load-websites <websites.yaml>",
		Short: "Stores municipality websites from an exported YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open websites file: %w", err)
			}
			defer f.Close()

			doc, err := export.ReadWebsites(f)
			if err != nil {
				return err
			}
			loaded := 0
			for name, w := range doc.Municipalities {
				m := housing.Municipality{Name: name, ResolutionConfidence: w.ResolutionConfidence}
				if w.OfficialWebsite != nil {
					m.OfficialWebsite = *w.OfficialWebsite
				}
				if w.LastUpdated != nil {
					ts, err := time.Parse(time.RFC3339, *w.LastUpdated)
					if err != nil {
						return fmt.Errorf("municipality %s: last_updated: %w", name, err)
					}
					m.LastResolvedAt = ts
				}
				if _, err := sess.app.Store().UpsertMunicipality(cmd.Context(), m); err != nil {
					return err
				}
				loaded++
			}
			sess.logger.Info("websites loaded", zap.String("path", args[0]), zap.Int("municipalities", loaded))
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d municipalities\n", loaded)
			return nil
		},
	}
}
