// Package output provides consistent CLI output formatting.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/edumate/internal/ingest"
	"github.com/Aman-CERP/edumate/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	useColor bool

	heading lipgloss.Style
	label   lipgloss.Style
	dim     lipgloss.Style
	score   lipgloss.Style
}

// New creates a Writer. Colour is enabled only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, colorSupported(out))
}

// NewWithColor creates a Writer with colour explicitly on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	w := &Writer{
		out:      out,
		useColor: useColor,
		heading:  lipgloss.NewStyle(),
		label:    lipgloss.NewStyle(),
		dim:      lipgloss.NewStyle(),
		score:    lipgloss.NewStyle(),
	}
	if useColor {
		w.heading = w.heading.Bold(true).Foreground(lipgloss.Color("37"))
		w.label = w.label.Foreground(lipgloss.Color("245"))
		w.dim = w.dim.Foreground(lipgloss.Color("240"))
		w.score = w.score.Bold(true)
	}
	return w
}

func colorSupported(out io.Writer) bool {
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		return false
	}
	f, ok := out.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Heading prints a bold section title.
func (w *Writer) Heading(title string) {
	_, _ = fmt.Fprintln(w.out, w.heading.Render(title))
}

// KeyValue prints an aligned "label: value" line.
func (w *Writer) KeyValue(label string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.label.Render(fmt.Sprintf("%-16s", label+":")), value)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// TopicResults prints the outcome of a topic search.
func (w *Writer) TopicResults(topic string, res *search.TopicResult, showContent bool) {
	if res == nil || len(res.Matches) == 0 {
		w.Warningf("No documents found for %q", topic)
		return
	}

	w.Heading(fmt.Sprintf("Documents for %q (%d of %d)", topic, len(res.Matches), res.TotalFound))
	for i, m := range res.Matches {
		md := m.Metadata
		_, _ = fmt.Fprintf(w.out, "%2d. %s %s\n", i+1, md.Title,
			w.score.Render(fmt.Sprintf("[%.2f %s]", m.Similarity, m.MatchType)))
		_, _ = fmt.Fprintf(w.out, "    %s\n", w.dim.Render(fmt.Sprintf("%s › %s › %s", md.Course, md.Chapter, md.FilePath)))
		if showContent {
			w.Code(m.Text)
		}
	}
}

// Summary prints store statistics with per-course chunk counts.
func (w *Writer) Summary(sum ingest.Summary) {
	w.Heading("Index summary")
	w.KeyValue("Chunks", sum.TotalChunks)
	w.KeyValue("Processed files", sum.ProcessedFiles)
	w.KeyValue("Backend", fmt.Sprintf("%s (%d dims)", sum.Backend, sum.Dimensions))
	w.KeyValue("Disk usage", HumanBytes(sum.DiskBytes))

	if len(sum.Courses) == 0 {
		return
	}
	courses := make([]string, 0, len(sum.Courses))
	for c := range sum.Courses {
		courses = append(courses, c)
	}
	sort.Strings(courses)

	w.Newline()
	w.Heading("Chunks per course")
	for _, c := range courses {
		w.KeyValue(c, sum.Courses[c])
	}
}

// HumanBytes formats a byte count.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
