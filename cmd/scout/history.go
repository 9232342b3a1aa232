package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/storage"
	"github.com/FranksOps/scout/internal/storage/backends"
)

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		filter storage.Filter
		since  time.Duration
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "text" && format != "json" {
				return apperr.Newf(apperr.KindConfig, "cli.history", "unknown format %q (want text or json)", format)
			}

			ctx := cmd.Context()
			archive, err := backends.Open(ctx, c.cfg.Archive.Backend, c.cfg.Archive.DSN)
			if err != nil {
				return err
			}
			if archive == nil {
				return apperr.Newf(apperr.KindConfig, "cli.history", "no archive configured (set archive.backend and archive.dsn)")
			}
			defer func() { _ = archive.Close() }()

			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}
			runs, err := archive.Query(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				if runs == nil {
					runs = []*storage.Run{}
				}
				return report.WriteJSON(out, runs)
			}
			return report.WriteHistory(out, report.GenerateSummary(runs))
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&filter.Limit, "limit", 20, "maximum number of runs")
	flags.IntVar(&filter.Offset, "offset", 0, "runs to skip")
	flags.StringVar(&filter.Query, "query", "", "only runs whose query contains this text")
	flags.DurationVar(&since, "since", 0, "only runs started within this window, e.g. 24h")
	flags.StringVar(&format, "format", "text", "output format: text or json")
	return cmd
}
