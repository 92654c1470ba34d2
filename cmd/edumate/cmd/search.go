package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
)

// newSearchCmd creates the search command.
func newSearchCmd() *cobra.Command {
	var topK int
	var showContent bool
	var best bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <topic>",
		Short: "Find documents about a topic",
		Long: `Search by topic. Files whose title or folder names contain the topic
rank first; the remaining results come from semantic similarity over
document chunks. Each file appears at most once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(contextOrBackground(cmd.Context()), cmd, query, topK, showContent, best, jsonOutput)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Maximum number of files (default search.top_k)")
	cmd.Flags().BoolVar(&showContent, "content", false, "Print the matching chunk text")
	cmd.Flags().BoolVar(&best, "best", false, "Print only the text of the top match")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, topK int, showContent, best, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, dir, out, appOptions{telemetry: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if best {
		content, err := a.coordinator.BestMatchContent(ctx, query)
		if err != nil {
			return err
		}
		if content == "" {
			out.Warningf("No content matches %q", query)
			return nil
		}
		out.Code(content)
		return nil
	}

	res, err := a.coordinator.SearchByTopic(ctx, query, topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	out.TopicResults(query, res, showContent)
	return nil
}
