// Package cmd defines and implements the CLI commands for the housing tracker.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/nj-housing-tracker/internal/app"
	"github.com/JakeFAU/nj-housing-tracker/internal/config"
	"github.com/JakeFAU/nj-housing-tracker/internal/logging"
	"github.com/JakeFAU/nj-housing-tracker/internal/metrics"
)

// session holds what one command invocation opens: configuration, the logger and the
// service container. It is closed once the command returns, successful or not.
type session struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
	app     *app.App
}

func (s *session) open(ctx context.Context, command string) error {
	cfg, err := config.Load(s.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = logger.With(zap.String("command", command))

	a, err := app.New(ctx, cfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	s.app = a
	return nil
}

func (s *session) close() error {
	var errs []error
	if s.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, err)
		}
	}
	if s.app != nil {
		if err := s.app.Close(); err != nil {
			errs = append(errs, err)
		}
		s.app = nil
	}
	if s.logger != nil {
		// Sync on a terminal stderr reports EINVAL; nothing to act on.
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}

// newRootCmd creates the root command and wires every subcommand to sess.
func newRootCmd(sess *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "housing",
		Short: "Tracks affordable housing commitments made by New Jersey municipalities.",
		Long: `housing resolves the official website of every New Jersey municipality,
walks those sites for planning pages and housing documents, and records the
affordable housing commitments it finds with their provenance.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Services are opened after flags are parsed and before the subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return sess.open(cmd.Context(), cmd.Name())
		},
	}

	cmd.PersistentFlags().StringVar(&sess.cfgFile, "config", "", "config file (YAML); HOUSING_* environment variables override it")

	cmd.AddCommand(
		newResolveCmd(sess),
		newExtractCmd(sess),
		newObligationsCmd(sess),
		newStatsCmd(sess),
		newExportCmd(sess),
		newLoadWebsitesCmd(sess),
		newMigrateCmd(sess),
	)
	return cmd
}

func run(ctx context.Context, args []string, out io.Writer) error {
	sess := &session{}
	root := newRootCmd(sess)
	root.SetArgs(args)
	root.SetOut(out)

	err := root.ExecuteContext(ctx)
	if cerr := sess.close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running batch, which
// stops after the current municipality and still prints its partial summary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
