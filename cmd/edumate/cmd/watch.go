package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
	"github.com/Aman-CERP/edumate/internal/watcher"
)

// newWatchCmd creates the watch command.
func newWatchCmd() *cobra.Command {
	var interval string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rescan the documents folder periodically",
		Long: `Scan the documents folder now and then on every interval until
interrupted. File changes trigger an early rescan when watch.notify is on.
A scan in progress finishes before exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, interval)
		},
	}

	cmd.Flags().StringVar(&interval, "interval", "", "Override watch.interval (e.g. 30s)")
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, interval string) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, dir, out, appOptions{write: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if interval != "" {
		a.cfg.Watch.Interval = interval
		if err := a.cfg.Validate(); err != nil {
			return err
		}
	}

	notifier := startNotifier(ctx, a)
	if notifier != nil {
		defer func() { _ = notifier.Stop() }()
	}

	out.Statusf("👀", "Watching %s every %s (Ctrl+C to stop)", a.cfg.Paths.Documents, a.cfg.WatchInterval())
	if err := a.pipeline.Watch(ctx, a.cfg.Paths.Documents, a.cfg.WatchInterval()); err != nil {
		return err
	}
	out.Success("Stopped watching")
	return nil
}

// startNotifier wires filesystem events into the pipeline's watch loop.
// Failures only disable the early trigger.
func startNotifier(ctx context.Context, a *app) *watcher.Notifier {
	if !a.cfg.Watch.Notify {
		return nil
	}
	n, err := watcher.NewNotifier(watcher.Options{
		DebounceWindow: a.cfg.WatchDebounce(),
		Extensions:     a.cfg.Paths.Extensions,
	})
	if err != nil {
		slog.Warn("file notifications unavailable", slog.String("error", err.Error()))
		return nil
	}
	if err := n.Start(ctx, a.cfg.Paths.Documents); err != nil {
		slog.Warn("file notifications unavailable", slog.String("error", err.Error()))
		_ = n.Stop()
		return nil
	}
	a.pipeline.SetTrigger(n.C())
	return n
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
