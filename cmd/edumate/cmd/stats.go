package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/edumate/internal/output"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	var jsonOutput bool
	var queries bool
	var days int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long: `Show the number of stored chunks, the embedding dimension, the
similarity backend and the memory and disk footprint. With --queries,
show the query log collected by search and serve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(contextOrBackground(cmd.Context()), cmd, jsonOutput, queries, days)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&queries, "queries", false, "Show query statistics")
	cmd.Flags().IntVar(&days, "days", 7, "Days of query history to include (0 for all)")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput, queries bool, days int) error {
	out := output.New(cmd.OutOrStdout())

	dir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, dir, out, appOptions{telemetry: queries})
	if err != nil {
		return err
	}
	defer a.Close()

	if queries {
		return printQueryStats(cmd, out, a.metricsStore, days, jsonOutput)
	}

	stats := a.index.Stats()
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out.Heading("Index")
	out.KeyValue("Chunks", stats.Count)
	out.KeyValue("Dimensions", stats.Dimensions)
	out.KeyValue("Backend", stats.Backend)
	out.KeyValue("Memory", output.HumanBytes(stats.ApproxSize))
	out.KeyValue("Disk", output.HumanBytes(stats.DiskBytes))
	out.KeyValue("Location", a.index.Dir())
	return nil
}

// printQueryStats reports the persisted query log.
func printQueryStats(cmd *cobra.Command, out *output.Writer, store *telemetry.SQLiteMetricsStore, days int, jsonOutput bool) error {
	if store == nil {
		out.Warning("Query telemetry is disabled (telemetry.enabled: false)")
		return nil
	}
	snap, err := telemetry.LoadHistory(store, days, 10)
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	out.Heading("Queries")
	out.KeyValue("Total", snap.TotalQueries)
	out.KeyValue("Zero results", fmt.Sprintf("%d (%.1f%%)", snap.ZeroResultCount, snap.ZeroResultPercentage()))
	if !snap.Since.IsZero() {
		out.KeyValue("Since", snap.Since.Format(time.DateOnly))
	}
	for _, kind := range []telemetry.MatchKind{telemetry.MatchExact, telemetry.MatchSemantic, telemetry.MatchNone} {
		out.KeyValue(string(kind), snap.KindCounts[kind])
	}
	if len(snap.TopTerms) > 0 {
		out.Newline()
		out.Heading("Top terms")
		for _, tc := range snap.TopTerms {
			out.KeyValue(tc.Term, tc.Count)
		}
	}
	if len(snap.ZeroResultQueries) > 0 {
		out.Newline()
		out.Heading("Recent queries without results")
		for _, q := range snap.ZeroResultQueries {
			out.Statusf("•", "%s", q)
		}
	}
	return nil
}
