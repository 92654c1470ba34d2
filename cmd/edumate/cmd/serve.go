package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/edumate/internal/mcp"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var transport string
	var watch bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve search_by_topic, best_match, index_stats and scan_documents as
MCP tools over stdio. By default the documents folder is also watched so
new material becomes searchable without restarting.

Stdout carries only protocol messages; logs go to ~/.edumate/logs/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport, watch, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport (stdio)")
	cmd.Flags().BoolVar(&watch, "watch", true, "Rescan the documents folder in the background")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default server.metrics_addr)")
	return cmd
}

// runServe runs the MCP server, the watch loop and the metrics endpoint
// until the client disconnects or ctx is cancelled. Nothing is written to
// stdout here.
func runServe(ctx context.Context, transport string, watch bool, metricsAddr string) error {
	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, dir, nil, appOptions{write: true, telemetry: true})
	if err != nil {
		slog.Error("failed to open store", slog.String("error", err.Error()))
		return err
	}
	defer a.Close()

	srv, err := mcp.NewServer(a.coordinator, a.pipeline, a.cfg.Paths.Documents)
	if err != nil {
		return err
	}
	if a.metrics != nil {
		srv.SetMetrics(a.metrics)
	}

	if metricsAddr == "" {
		metricsAddr = a.cfg.Server.MetricsAddr
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The client closing stdio ends the session and everything with it.
		defer cancel()
		slog.Info("MCP server starting",
			slog.String("transport", transport),
			slog.String("documents", a.cfg.Paths.Documents))
		return srv.Serve(gctx, transport)
	})

	if watch {
		n := startNotifier(gctx, a)
		if n != nil {
			defer func() { _ = n.Stop() }()
		}
		g.Go(func() error {
			return a.pipeline.Watch(gctx, a.cfg.Paths.Documents, a.cfg.WatchInterval())
		})
	}

	if metricsAddr != "" {
		httpSrv := newMetricsServer(metricsAddr)
		g.Go(func() error {
			slog.Info("metrics endpoint listening", slog.String("addr", metricsAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped", slog.String("error", err.Error()))
		return err
	}
	slog.Info("server stopped")
	return nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
