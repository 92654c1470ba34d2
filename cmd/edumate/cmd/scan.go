package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
	"github.com/Aman-CERP/edumate/internal/ui"
)

// newScanCmd creates the scan command.
func newScanCmd() *cobra.Command {
	var plain bool
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Ingest new and changed documents",
		Long: `Walk the documents folder, ingest every new or modified file and save
the index. Unchanged files are skipped by fingerprint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(contextOrBackground(cmd.Context()), cmd, plain, rebuild)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain progress output instead of a progress bar")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Clear the index before scanning")
	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, plain, rebuild bool) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}

	renderer := ui.NewRenderer(ui.Config{
		Output:     cmd.OutOrStdout(),
		ForcePlain: plain,
		NoColor:    ui.DetectNoColor(),
		RootDir:    dir,
	})

	total := 0
	a, err := openApp(ctx, dir, out, appOptions{
		write: true,
		progress: func(done, n int, path string) {
			total = n
			renderer.UpdateProgress(ui.ProgressEvent{Done: done, Total: n, File: path})
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if rebuild {
		if err := a.pipeline.Reset(); err != nil {
			return err
		}
	}

	if err := renderer.Start(ctx); err != nil {
		return err
	}
	start := time.Now()
	added, err := a.pipeline.Scan(ctx, a.cfg.Paths.Documents)
	if err != nil {
		_ = renderer.Stop()
		return err
	}
	renderer.Complete(ui.CompletionStats{
		Files:      total,
		FilesAdded: added,
		Chunks:     a.index.Len(),
		Duration:   time.Since(start),
	})
	return renderer.Stop()
}
