package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUIRenderer shows a live progress bar using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *scanModel
	cancel  context.CancelFunc
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails for non-terminal output.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newScanModel(cfg.RootDir)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	ctx, r.cancel = context.WithCancel(ctx)

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithInput(nil)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program == nil {
		return nil
	}
	r.program.Quit()

	// An unresponsive program must not hang shutdown.
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

type progressMsg ProgressEvent
type completeMsg CompletionStats

// scanModel is the bubbletea model for scan progress.
type scanModel struct {
	rootDir  string
	done     int
	total    int
	file     string
	complete bool
	stats    CompletionStats
	width    int

	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

func newScanModel(rootDir string) *scanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &scanModel{
		rootDir: rootDir,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

// Init implements tea.Model.
func (m *scanModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *scanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, msg.Width-20)

	case progressMsg:
		m.done, m.total, m.file = msg.Done, msg.Total, msg.File

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *scanModel) View() string {
	if m.complete {
		return m.renderComplete()
	}

	title := "edumate scan"
	if m.rootDir != "" {
		title = fmt.Sprintf("edumate scan • %s", m.rootDir)
	}

	var body string
	if m.total == 0 {
		body = fmt.Sprintf("%s Discovering documents...", m.spinner.View())
	} else {
		pct := float64(m.done) / float64(m.total)
		body = fmt.Sprintf("%s  %s\n%s",
			m.bar.ViewAs(pct),
			m.styles.Value.Render(fmt.Sprintf("%3.0f%%", pct*100)),
			m.styles.Label.Render(fmt.Sprintf("%d / %d files", m.done, m.total)))
		if m.file != "" {
			body += "\n" + m.styles.Dim.Render(truncatePath(m.file, max(20, m.width-8)))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.styles.Panel.Render(body),
	) + "\n"
}

func (m *scanModel) renderComplete() string {
	lines := []string{
		m.styles.Success.Render("✓ Scan complete"),
		"",
		fmt.Sprintf("%s %s", m.styles.Label.Render("Files added:"),
			m.styles.Value.Render(fmt.Sprintf("%d of %d", m.stats.FilesAdded, m.stats.Files))),
		fmt.Sprintf("%s      %s", m.styles.Label.Render("Chunks:"),
			m.styles.Value.Render(fmt.Sprintf("%d", m.stats.Chunks))),
		fmt.Sprintf("%s    %s", m.styles.Label.Render("Duration:"),
			m.styles.Value.Render(formatDuration(m.stats.Duration))),
	}
	return m.styles.Panel.Render(strings.Join(lines, "\n")) + "\n"
}

// truncatePath shortens path from the left to at most maxLen bytes,
// keeping the file name.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	name := filepath.Base(path)
	if len(name)+4 > maxLen {
		return "..." + name[len(name)-(maxLen-3):]
	}
	keep := maxLen - 3
	return "..." + path[len(path)-keep:]
}

var _ Renderer = (*TUIRenderer)(nil)
