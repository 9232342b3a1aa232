package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scout/internal/app"
	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/report"
)

func newRunCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "text" && format != "json" {
				return apperr.Newf(apperr.KindConfig, "cli.run", "unknown format %q (want text or json)", format)
			}

			ctx := cmd.Context()
			if c.cfg.Metrics.Port > 0 {
				srv := metrics.Start(c.cfg.Metrics.Port, c.logger)
				defer func() { _ = srv.Stop(context.WithoutCancel(ctx)) }()
			}

			a, err := app.New(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					c.logger.Warn("close", "err", err)
				}
			}()

			run, err := a.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return report.WriteJSON(out, run.Records)
			}
			if err := report.WriteText(out, run.Records); err != nil {
				return fmt.Errorf("print records: %w", err)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("query", "", "search query (default from search.query)")
	flags.Int("limit", 10, "maximum number of profiles")
	flags.Int("concurrency", 1, "profiles processed at once")
	flags.Int("metrics-port", 0, "expose Prometheus metrics on this port while running")
	flags.StringVar(&format, "format", "text", "output format: text or json")
	bindFlag(c.v, "search.query", flags.Lookup("query"))
	bindFlag(c.v, "search.limit", flags.Lookup("limit"))
	bindFlag(c.v, "pipeline.concurrency", flags.Lookup("concurrency"))
	bindFlag(c.v, "metrics.port", flags.Lookup("metrics-port"))
	return cmd
}
