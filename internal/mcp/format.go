package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Aman-CERP/edumate/internal/ingest"
	"github.com/Aman-CERP/edumate/internal/search"
)

// maxSnippetChars bounds the excerpt shown per match.
const maxSnippetChars = 400

// FormatTopicResults renders a topic search as markdown.
func FormatTopicResults(topic string, res *search.TopicResult) string {
	if res == nil || len(res.Matches) == 0 {
		return fmt.Sprintf("No documents found for \"%s\"", topic)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Documents for \"%s\"\n\n", topic))
	sb.WriteString(fmt.Sprintf("Showing %d of %d matching file", len(res.Matches), res.TotalFound))
	if res.TotalFound != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")

	for i, m := range res.Matches {
		formatMatch(&sb, i+1, m)
	}
	return sb.String()
}

func formatMatch(sb *strings.Builder, num int, m search.Match) {
	md := m.Metadata
	sb.WriteString(fmt.Sprintf("### %d. %s\n", num, md.Title))
	sb.WriteString(fmt.Sprintf("**Course:** %s | **Chapter:** %s | **Score:** %.2f (%s)\n",
		md.Course, md.Chapter, m.Similarity, m.MatchType))
	sb.WriteString(fmt.Sprintf("**File:** `%s` (chunk %d of %d)\n\n", md.FilePath, md.ChunkID+1, md.TotalChunks))
	sb.WriteString("> ")
	sb.WriteString(strings.ReplaceAll(snippet(m.Text), "\n", "\n> "))
	sb.WriteString("\n\n")
}

// FormatSummary renders store statistics as markdown.
func FormatSummary(sum ingest.Summary) string {
	var sb strings.Builder
	sb.WriteString("## Index Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Chunks:** %d\n", sum.TotalChunks))
	sb.WriteString(fmt.Sprintf("- **Processed files:** %d\n", sum.ProcessedFiles))
	sb.WriteString(fmt.Sprintf("- **Backend:** %s (%d dimensions)\n", sum.Backend, sum.Dimensions))
	sb.WriteString(fmt.Sprintf("- **Disk usage:** %s\n", humanSize(sum.DiskBytes)))
	if len(sum.Courses) > 0 {
		sb.WriteString("\n| Course | Chunks |\n|---|---|\n")
		for _, c := range sortedKeys(sum.Courses) {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", c, sum.Courses[c]))
		}
	}
	return sb.String()
}

func snippet(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxSnippetChars {
		return string(runes)
	}
	return string(runes[:maxSnippetChars]) + "..."
}

// clampLimit returns defaultVal for non-positive limits and keeps the rest
// within [lo, hi].
func clampLimit(limit, defaultVal, lo, hi int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < lo {
		return lo
	}
	if limit > hi {
		return hi
	}
	return limit
}

// humanSize formats bytes as a human-readable string.
func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
