package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/CognitoIQ/ocxschema/internal/fetch"
	"github.com/CognitoIQ/ocxschema/internal/httpapi"
	"github.com/CognitoIQ/ocxschema/internal/mcpserver"
	"github.com/CognitoIQ/ocxschema/internal/metrics"
	"github.com/CognitoIQ/ocxschema/internal/watch"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	var watchFiles bool
	cmd := &cobra.Command{
		Use:   "serve [source]",
		Short: "Serve the schema queries as a JSON API",
		Long: `Serve the schema queries over HTTP:

  GET  /healthz
  GET  /api/summary
  GET  /api/declarations/{kind}?q=
  GET  /api/lookup/{name}?source=true
  GET  /api/namespaces
  GET  /api/changes?filter=current
  POST /api/parse   {"source": "..."}

Prometheus metrics are served at server.metrics_path. Without a
schema the server starts empty and waits for /api/parse.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			collector := metrics.NewWithRegistry(reg)
			a.reader.Observer = collector

			source := a.sourceOf(args)
			if source != "" {
				if _, err := a.load(ctx, args); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("watch") {
				a.cfg.Server.Watch = watchFiles
			}
			if a.cfg.Server.Watch && source != "" && !fetch.IsURL(source) {
				w := watch.New(a.reader, source, a.logger)
				if err := w.Start(); err != nil {
					return err
				}
				defer w.Stop()
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr: addr,
				Handler: httpapi.NewRouter(a.reader, httpapi.Options{
					Logger:      a.logger,
					Metrics:     collector,
					Gatherer:    reg,
					MetricsPath: a.cfg.Server.MetricsPath,
				}),
				ReadTimeout: a.cfg.Server.ReadTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", addr).Msg("http server listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr from the config)")
	cmd.Flags().BoolVar(&watchFiles, "watch", false, "re-parse local schema files when they change")
	return cmd
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp [source]",
		Short: "Serve the schema queries as MCP tools over stdio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.sourceOf(args) != "" {
				if _, err := a.load(ctx, args); err != nil {
					return err
				}
			}
			return mcpserver.New(a.reader, a.logger).Run(ctx, version)
		},
	}
}
