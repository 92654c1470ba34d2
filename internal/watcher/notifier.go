package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifier watches a directory tree and signals on C after document
// changes settle. Signals coalesce: at most one is pending at a time.
type Notifier struct {
	fsWatcher  *fsnotify.Watcher
	debouncer  *Debouncer
	extensions map[string]struct{}
	signal     chan struct{}
	stopCh     chan struct{}
	rootPath   string

	mu      sync.Mutex
	stopped bool
}

// NewNotifier creates a notifier. It fails when the platform cannot
// provide filesystem events; callers then rely on periodic scans alone.
func NewNotifier(opts Options) (*Notifier, error) {
	opts = opts.WithDefaults()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}

	return &Notifier{
		fsWatcher:  fsw,
		debouncer:  NewDebouncer(opts.DebounceWindow),
		extensions: exts,
		signal:     make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}, nil
}

// Start watches root recursively and returns. Events are processed in the
// background until ctx is cancelled or Stop is called.
func (n *Notifier) Start(ctx context.Context, root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	n.rootPath = absRoot

	if err := n.addRecursive(absRoot); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	go n.readEvents(ctx)
	go n.forwardBatches()
	return nil
}

// C returns the signal channel.
func (n *Notifier) C() <-chan struct{} {
	return n.signal
}

func (n *Notifier) readEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			_ = n.Stop()
			return
		case <-n.stopCh:
			return
		case event, ok := <-n.fsWatcher.Events:
			if !ok {
				return
			}
			n.handle(event)
		case err, ok := <-n.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("filesystem watcher error", slog.String("error", err.Error()))
		}
	}
}

func (n *Notifier) forwardBatches() {
	for events := range n.debouncer.Output() {
		if len(events) == 0 {
			continue
		}
		slog.Debug("document changes detected",
			slog.Int("events", len(events)),
			slog.String("first", events[0].Path))
		select {
		case n.signal <- struct{}{}:
		default:
		}
	}
}

// handle converts an fsnotify event and queues it when relevant.
func (n *Notifier) handle(event fsnotify.Event) {
	relPath, err := filepath.Rel(n.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}
	if relPath == "." || isHidden(relPath) {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			if err := n.addRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	// Removed paths cannot be stat'ed, so filter them by extension only.
	if !isDir && !n.accepts(relPath) {
		return
	}

	n.debouncer.Add(FileEvent{
		Path:      relPath,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

func (n *Notifier) accepts(relPath string) bool {
	if len(n.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(relPath))
	if ext == "" {
		// Possibly a removed directory.
		return true
	}
	_, ok := n.extensions[ext]
	return ok
}

// addRecursive watches dir and every non-hidden directory below it.
func (n *Notifier) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(n.rootPath, path); rel != "." && isHidden(rel) {
			return filepath.SkipDir
		}
		return n.fsWatcher.Add(path)
	})
}

// isHidden reports whether any segment of relPath starts with a dot.
func isHidden(relPath string) bool {
	for _, seg := range strings.Split(relPath, string(filepath.Separator)) {
		if strings.HasPrefix(seg, ".") && seg != "." && seg != ".." {
			return true
		}
	}
	return false
}

// Stop releases the watcher. Safe to call multiple times.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	if n.stopped {
		n.mu.Unlock()
		return nil
	}
	n.stopped = true
	close(n.stopCh)
	n.mu.Unlock()

	n.debouncer.Stop()
	return n.fsWatcher.Close()
}
