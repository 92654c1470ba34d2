package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/edumate/internal/config"
	"github.com/Aman-CERP/edumate/internal/embed"
	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
	"github.com/Aman-CERP/edumate/internal/ingest"
	"github.com/Aman-CERP/edumate/internal/output"
	"github.com/Aman-CERP/edumate/internal/search"
	"github.com/Aman-CERP/edumate/internal/store"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// appOptions selects what openApp wires up.
type appOptions struct {
	// write takes the store lock and rebuilds a corrupt store.
	write bool
	// telemetry opens the query log when enabled in config.
	telemetry bool
	progress  ingest.ProgressFunc
}

// app holds the components shared by commands.
type app struct {
	cfg         *config.Config
	embedder    embed.Embedder
	index       *store.VectorIndex
	registry    *store.Registry
	pipeline    *ingest.Pipeline
	coordinator *search.Coordinator
	metrics     *telemetry.QueryMetrics

	lock         *store.DirLock
	metricsStore *telemetry.SQLiteMetricsStore
}

// openApp loads configuration for dir and the persisted store. A
// corrupt store is reported on out and, for writers, discarded so the
// next scan rebuilds it.
func openApp(ctx context.Context, dir string, out *output.Writer, opts appOptions) (*app, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if opts.write {
		a.lock = store.NewDirLock(cfg.Paths.Database)
		if err := a.lock.TryLock(); err != nil {
			return nil, err
		}
	}

	a.embedder, err = embed.NewEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	a.index = store.NewVectorIndex(a.embedder, store.Options{
		Dir:     cfg.Paths.Database,
		Backend: store.Backend(strings.ToLower(cfg.Search.Backend)),
		HNSW: store.HNSWOptions{
			M:        cfg.Search.HNSW.M,
			EfSearch: cfg.Search.HNSW.EfSearch,
		},
	})
	a.registry = store.NewRegistry(cfg.Paths.Database)

	a.pipeline, err = ingest.NewPipeline(a.index, a.registry, ingest.Options{
		Root:         cfg.Paths.Documents,
		ChunkSize:    cfg.Chunking.Size,
		ChunkOverlap: cfg.Chunking.Overlap,
		Extensions:   cfg.Paths.Extensions,
		Exclude:      cfg.Paths.Exclude,
		PruneMissing: cfg.Paths.PruneMissing,
		Progress:     opts.progress,
	})
	if err != nil {
		return nil, err
	}

	if err := a.load(out, opts.write); err != nil {
		return nil, err
	}

	var coordOpts []search.CoordinatorOption
	coordOpts = append(coordOpts, search.WithOptions(search.Options{
		TopK:          cfg.Search.TopK,
		Threshold:     float32(cfg.Search.Threshold),
		MetadataScore: float32(cfg.Search.MetadataScore),
	}), search.WithThreshold(float32(cfg.Search.Threshold)))
	if opts.telemetry && cfg.Telemetry.Enabled {
		if err := os.MkdirAll(cfg.Paths.Database, 0o755); err != nil {
			return nil, eduerrors.StorageError("failed to create database directory", err)
		}
		a.metricsStore, err = telemetry.OpenSQLiteMetricsStore(filepath.Join(cfg.Paths.Database, telemetry.StoreFileName))
		if err != nil {
			// Telemetry is optional; search still works without it.
			slog.Warn("query telemetry disabled", slog.String("error", err.Error()))
		} else {
			a.metrics = telemetry.NewQueryMetrics(a.metricsStore)
			coordOpts = append(coordOpts, search.WithRecorder(a.metrics))
		}
	}
	a.coordinator = search.NewCoordinator(a.index, coordOpts...)

	ok = true
	return a, nil
}

// load reads the index and registry.
func (a *app) load(out *output.Writer, write bool) error {
	err := a.index.Load()
	if err == nil {
		err = a.registry.Load()
	}
	if err == nil {
		return nil
	}
	if !errors.Is(err, eduerrors.ErrStorage) {
		return err
	}

	slog.Warn("store unreadable, rebuilding",
		slog.String("dir", a.cfg.Paths.Database),
		slog.String("code", eduerrors.GetCode(err)),
		slog.String("error", err.Error()))
	if out != nil {
		out.Warningf("Index at %s is unreadable (%v); it will be rebuilt", a.cfg.Paths.Database, err)
	}
	if !write {
		// Readers see an empty store; only writers touch the artifacts.
		return nil
	}
	return a.pipeline.Reset()
}

// Close releases the lock and flushes telemetry.
func (a *app) Close() {
	if a.metrics != nil {
		_ = a.metrics.Close()
	}
	if a.metricsStore != nil {
		_ = a.metricsStore.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
	if a.lock != nil {
		_ = a.lock.Unlock()
	}
}

// resolveProjectDir returns the absolute project directory.
func resolveProjectDir() (string, error) {
	dir := projectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}
