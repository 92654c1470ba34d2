package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
)

// newAddCmd creates the add command.
func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Ingest specific documents",
		Long: `Ingest one or more files and save the index. Metadata comes from the
file's location below the documents folder.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(contextOrBackground(cmd.Context()), cmd, args)
		},
	}
}

func runAdd(ctx context.Context, cmd *cobra.Command, files []string) error {
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

	failed := 0
	for _, f := range files {
		added, err := a.pipeline.AddFile(ctx, f)
		switch {
		case err != nil:
			failed++
			out.Errorf("%s: %v", f, err)
		case added:
			out.Successf("Added %s", f)
		default:
			out.Statusf("⏭️", "Unchanged %s", f)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
