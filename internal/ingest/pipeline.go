package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
	"github.com/Aman-CERP/edumate/internal/extract"
	"github.com/Aman-CERP/edumate/internal/scanner"
	"github.com/Aman-CERP/edumate/internal/store"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// ProgressFunc is called after each file of a scan is handled.
type ProgressFunc func(done, total int, path string)

// Options configures a Pipeline.
type Options struct {
	// Root is the documents root that metadata is derived against. Empty
	// means the root passed to Scan.
	Root string

	ChunkSize    int
	ChunkOverlap int

	// Extensions and Exclude select the files a scan picks up.
	Extensions []string
	Exclude    []string

	// PruneMissing drops registered files that no longer exist.
	PruneMissing bool

	// Extractors overrides the built-in format registry.
	Extractors *extract.Registry

	// Progress, if set, observes scan progress.
	Progress ProgressFunc
}

// Pipeline ingests documents into a VectorIndex and tracks what it has
// ingested in a Registry. Scans are serialized.
type Pipeline struct {
	index      *store.VectorIndex
	registry   *store.Registry
	extractors *extract.Registry
	opts       Options

	// scanMu serializes Scan, AddFile and Reset.
	scanMu  sync.Mutex
	trigger <-chan struct{}
}

// NewPipeline validates opts and returns a pipeline. Invalid chunk
// parameters fail here rather than on the first document.
func NewPipeline(index *store.VectorIndex, registry *store.Registry, opts Options) (*Pipeline, error) {
	if index == nil || registry == nil {
		return nil, eduerrors.New(eduerrors.ErrCodeInternal, "pipeline requires an index and a registry", nil)
	}
	if err := ValidateChunkParams(opts.ChunkSize, opts.ChunkOverlap); err != nil {
		return nil, err
	}
	if opts.Root != "" {
		abs, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, eduerrors.ConfigError("failed to resolve documents root", err)
		}
		opts.Root = abs
	}
	extractors := opts.Extractors
	if extractors == nil {
		extractors = extract.Default()
	}
	return &Pipeline{
		index:      index,
		registry:   registry,
		extractors: extractors,
		opts:       opts,
	}, nil
}

// SetTrigger installs a channel whose signals start a Watch scan before
// the interval elapses.
func (p *Pipeline) SetTrigger(trigger <-chan struct{}) {
	p.trigger = trigger
}

// Index returns the pipeline's index.
func (p *Pipeline) Index() *store.VectorIndex {
	return p.index
}

// Registry returns the processed-file registry.
func (p *Pipeline) Registry() *store.Registry {
	return p.registry
}

// ExtractText returns the text of path using the format registry.
func (p *Pipeline) ExtractText(path string) (string, error) {
	return p.extractors.Extract(path)
}

// DeriveMetadata returns the per-file metadata of path relative to the
// configured documents root.
func (p *Pipeline) DeriveMetadata(path string) store.Metadata {
	return DeriveMetadata(p.metadataRoot(""), path)
}

// metadataRoot returns the configured root, or fallback when unset.
func (p *Pipeline) metadataRoot(fallback string) string {
	if p.opts.Root != "" {
		return p.opts.Root
	}
	return fallback
}

// ProcessFile ingests one file. It returns false with a nil error when the
// file is unchanged since it was last ingested. On success the file's
// previous chunks are replaced and the registry is updated in memory;
// nothing is persisted.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (bool, error) {
	return p.processFile(ctx, p.metadataRoot(filepath.Dir(path)), path)
}

func (p *Pipeline) processFile(ctx context.Context, root, path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, eduerrors.ExtractionError(path, err)
	}

	fp, err := Fingerprint(abs)
	if err != nil {
		telemetry.ObserveFile(telemetry.OutcomeFailed, 0)
		return false, err
	}
	if !p.registry.NeedsProcessing(abs, fp) {
		telemetry.ObserveFile(telemetry.OutcomeSkipped, 0)
		return false, nil
	}

	n, err := p.ingest(ctx, root, abs)
	if err != nil {
		telemetry.ObserveFile(telemetry.OutcomeFailed, 0)
		return false, err
	}
	p.registry.Set(abs, fp)
	telemetry.ObserveFile(telemetry.OutcomeAdded, n)

	slog.Info("document processed",
		slog.String("path", abs),
		slog.Int("chunks", n))
	return true, nil
}

// ingest extracts, chunks and stores abs, returning the chunk count.
func (p *Pipeline) ingest(ctx context.Context, root, abs string) (int, error) {
	text, err := p.ExtractText(abs)
	if err != nil {
		return 0, err
	}

	chunks, err := Chunk(text, p.opts.ChunkSize, p.opts.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, eduerrors.ExtractionError(abs, nil)
	}

	base := DeriveMetadata(root, abs)
	metas := make([]store.Metadata, len(chunks))
	for i := range chunks {
		m := base
		m.Topics = append([]string(nil), base.Topics...)
		m.ChunkID = i
		m.TotalChunks = len(chunks)
		metas[i] = m
	}

	removed, err := p.index.ReplaceFile(ctx, base.ID, chunks, metas)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Debug("replaced stale chunks",
			slog.String("path", abs),
			slog.Int("removed", removed))
	}
	return len(chunks), nil
}

// Scan ingests every new or changed document below root and persists the
// result once. Per-file failures are logged and skipped. It returns the
// number of files that produced entries. Cancelling ctx stops the scan
// between files; work already done is still persisted.
func (p *Pipeline) Scan(ctx context.Context, root string) (int, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	start := time.Now()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, eduerrors.StorageError("failed to resolve documents root", err)
	}

	files, err := scanner.New(scanner.Options{
		RootDir:         absRoot,
		Extensions:      p.opts.Extensions,
		ExcludePatterns: p.opts.Exclude,
	}).Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to discover documents: %w", err)
	}

	metaRoot := p.metadataRoot(absRoot)
	processed, failed := 0, 0
	changed := false
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		ok, err := p.processFile(ctx, metaRoot, f.AbsPath)
		switch {
		case err != nil:
			failed++
			slog.Warn("failed to process document",
				slog.String("path", f.AbsPath),
				slog.String("code", eduerrors.GetCode(err)),
				slog.String("error", err.Error()))
		case ok:
			processed++
			changed = true
		}
		if p.opts.Progress != nil {
			p.opts.Progress(i+1, len(files), f.Path)
		}
	}

	if p.opts.PruneMissing && ctx.Err() == nil {
		if p.pruneMissing(absRoot) > 0 {
			changed = true
		}
	}

	if changed {
		if err := p.persistLocked(); err != nil {
			return processed, err
		}
	}

	telemetry.ObserveScan(time.Since(start), p.index.Len())
	slog.Info("scan complete",
		slog.String("root", absRoot),
		slog.Int("discovered", len(files)),
		slog.Int("processed", processed),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)))

	if err := ctx.Err(); err != nil {
		return processed, err
	}
	return processed, nil
}

// pruneMissing drops registered files below root that no longer exist.
func (p *Pipeline) pruneMissing(absRoot string) int {
	prefix := absRoot + string(filepath.Separator)
	pruned := 0
	for _, path := range p.registry.Paths() {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		removed := p.index.DeleteFile(FileID(path))
		p.registry.Remove(path)
		pruned++
		slog.Info("pruned missing document",
			slog.String("path", path),
			slog.Int("chunks", removed))
	}
	return pruned
}

// AddFile ingests a single file and persists the store if it changed.
func (p *Pipeline) AddFile(ctx context.Context, path string) (bool, error) {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()

	ok, err := p.ProcessFile(ctx, path)
	if err != nil || !ok {
		return ok, err
	}
	return true, p.persistLocked()
}

// Persist saves the index and then the registry.
func (p *Pipeline) Persist() error {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()
	return p.persistLocked()
}

// persistLocked saves the index before the registry. A crash in between
// leaves files registered as unprocessed, which only causes re-ingestion.
func (p *Pipeline) persistLocked() error {
	if err := p.index.Save(); err != nil {
		return err
	}
	return p.registry.Save()
}

// Watch scans root immediately and then every interval until ctx is
// cancelled. A signal on the trigger channel (see SetTrigger) starts the
// next scan early. A scan in progress when ctx is cancelled runs to
// completion. Per-scan failures are logged and do not stop the loop.
func (p *Pipeline) Watch(ctx context.Context, root string, interval time.Duration) error {
	if interval <= 0 {
		return eduerrors.ConfigError(fmt.Sprintf("watch interval must be positive, got %s", interval), nil)
	}

	scanCtx := context.WithoutCancel(ctx)
	scanOnce := func() {
		n, err := p.Scan(scanCtx, root)
		if err != nil {
			slog.Error("watch scan failed",
				slog.String("root", root),
				slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			slog.Info("watch ingested documents", slog.Int("files", n))
		}
	}

	slog.Info("watching documents",
		slog.String("root", root),
		slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		scanOnce()

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-p.trigger:
			ticker.Reset(interval)
		}
	}
}

// Reset clears the index and the registry, on disk and in memory.
func (p *Pipeline) Reset() error {
	p.scanMu.Lock()
	defer p.scanMu.Unlock()
	if err := p.index.Clear(); err != nil {
		return err
	}
	return p.registry.Clear()
}

// Summary describes the store contents.
type Summary struct {
	TotalChunks    int            `json:"total_chunks"`
	Dimensions     int            `json:"dimensions"`
	Backend        string         `json:"backend"`
	ProcessedFiles int            `json:"processed_files"`
	Courses        map[string]int `json:"courses"`
	DiskBytes      int64          `json:"disk_bytes"`
}

// Summary counts chunks per course and reports store sizes.
func (p *Pipeline) Summary() Summary {
	stats := p.index.Stats()
	courses := make(map[string]int)
	p.index.Each(func(_ string, m store.Metadata) bool {
		courses[m.Course]++
		return true
	})
	return Summary{
		TotalChunks:    stats.Count,
		Dimensions:     stats.Dimensions,
		Backend:        string(stats.Backend),
		ProcessedFiles: p.registry.Len(),
		Courses:        courses,
		DiskBytes:      stats.DiskBytes + p.registry.DiskBytes(),
	}
}
