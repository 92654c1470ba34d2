package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
)

// newClearCmd creates the clear command.
func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the index and the processed-file registry",
		Long: `Remove every stored chunk and forget which files were processed.
The next scan ingests all documents again. Source documents are not touched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(contextOrBackground(cmd.Context()), cmd, yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runClear(ctx context.Context, cmd *cobra.Command, yes bool) error {
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

	if !yes {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Delete %d chunks from %s? [y/N] ", a.index.Len(), a.cfg.Paths.Database)
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			out.Status("✋", "Aborted")
			return nil
		}
	}

	if err := a.pipeline.Reset(); err != nil {
		return err
	}
	out.Success("Index cleared")
	return nil
}
