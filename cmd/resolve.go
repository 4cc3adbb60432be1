package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newResolveCmd(sess *session) *cobra.Command {
	var namesFile string
	cmd := &cobra.Command{
		Use:   "resolve [municipality...]",
		Short: "Finds the official website of each municipality",
		Long: `Queries the state directory and web search for each municipality, scores
the candidates and stores the winner. Names come from the arguments, from
--names-file (one per line), or default to every municipality in the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			names, err := resolveTargets(ctx, sess, args, namesFile)
			if err != nil {
				return err
			}
			r, err := sess.app.Resolver()
			if err != nil {
				return fmt.Errorf("init resolver: %w", err)
			}
			summary, runErr := r.Run(ctx, names)
			printSummary(cmd.OutOrStdout(), "Website resolution", summary)
			return runErr
		},
	}
	cmd.Flags().StringVar(&namesFile, "names-file", "", "file listing municipality names, one per line")
	return cmd
}

func resolveTargets(ctx context.Context, sess *session, args []string, namesFile string) ([]string, error) {
	names := append([]string(nil), args...)
	if namesFile != "" {
		fromFile, err := readNames(namesFile)
		if err != nil {
			return nil, err
		}
		names = append(names, fromFile...)
	}
	if len(names) > 0 {
		return names, nil
	}

	munis, err := sess.app.Store().ListMunicipalities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list municipalities: %w", err)
	}
	for _, m := range munis {
		names = append(names, m.Name)
	}
	if len(names) == 0 {
		return nil, errors.New("no municipalities to resolve: pass names, --names-file, or load the obligations workbook first")
	}
	return names, nil
}

func readNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open names file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read names file: %w", err)
	}
	return names, nil
}
