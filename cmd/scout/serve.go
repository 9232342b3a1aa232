package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/scout/internal/app"
	"github.com/FranksOps/scout/internal/web"
)

// runWriteTimeout covers a synchronous run of a full results page.
const runWriteTimeout = 5 * time.Minute

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the one-button web page and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			handler := web.New(a, web.Options{
				Title:   c.cfg.Server.Title,
				Button:  c.cfg.Server.Button,
				Archive: a.Archive(),
			}, c.logger)

			httpServer := &http.Server{
				Addr:              c.cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      runWriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("server starting", "addr", c.cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			c.logger.Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				c.logger.Error("server shutdown", "err", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	bindFlag(c.v, "server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
