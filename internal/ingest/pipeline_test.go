package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edumate/internal/embed"
	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
	"github.com/Aman-CERP/edumate/internal/store"
)

// flakyEmbedder delegates to the static embedder but fails for texts
// containing a marker word.
type flakyEmbedder struct {
	embed.Embedder
	marker string
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, f.marker) {
			return nil, errors.New("provider unavailable")
		}
	}
	return f.Embedder.EmbedBatch(ctx, texts)
}

type fixture struct {
	root     string
	dbDir    string
	embedder embed.Embedder
	index    *store.VectorIndex
	registry *store.Registry
	pipeline *Pipeline
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	return newFixtureWithEmbedder(t, embed.NewStaticEmbedder(64), opts)
}

func newFixtureWithEmbedder(t *testing.T, emb embed.Embedder, opts Options) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:     filepath.Join(base, "documents"),
		dbDir:    filepath.Join(base, "vector_db"),
		embedder: emb,
	}
	require.NoError(t, os.MkdirAll(f.root, 0o755))
	f.index = store.NewVectorIndex(emb, store.Options{Dir: f.dbDir})
	f.registry = store.NewRegistry(f.dbDir)

	if opts.ChunkSize == 0 {
		opts.ChunkSize, opts.ChunkOverlap = 20, 5
	}
	if opts.Extensions == nil {
		opts.Extensions = []string{".txt", ".md", ".docx", ".pdf"}
	}
	opts.Root = f.root
	p, err := NewPipeline(f.index, f.registry, opts)
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) chunksOf(path string) []store.Metadata {
	var out []store.Metadata
	id := FileID(path)
	f.index.Each(func(_ string, m store.Metadata) bool {
		if m.ID == id {
			out = append(out, m)
		}
		return true
	})
	return out
}

func TestNewPipeline_RejectsInvalidChunking(t *testing.T) {
	idx := store.NewVectorIndex(embed.NewStaticEmbedder(8), store.Options{Dir: t.TempDir()})
	reg := store.NewRegistry(t.TempDir())

	_, err := NewPipeline(idx, reg, Options{ChunkSize: 50, ChunkOverlap: 50})

	assert.ErrorIs(t, err, eduerrors.ErrConfig)
	assert.Equal(t, eduerrors.ErrCodeChunkParams, eduerrors.GetCode(err))
}

func TestPipeline_Scan_IngestsNewFiles(t *testing.T) {
	// Given: two courses worth of notes
	f := newFixture(t, Options{})
	rec := f.write(t, "Computer_Science/Week_1/recursion.md", words(45))
	f.write(t, "Algebra/groups.txt", "a group is a set with an associative operation")

	// When: scanning
	n, err := f.pipeline.Scan(context.Background(), f.root)

	// Then: both files are indexed with path-derived metadata
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, f.registry.Len())

	chunks := f.chunksOf(rec)
	require.Len(t, chunks, 3) // 45 words, window 20, step 15
	for i, m := range chunks {
		assert.Equal(t, i, m.ChunkID)
		assert.Equal(t, 3, m.TotalChunks)
		assert.Equal(t, "Computer Science", m.Course)
		assert.Equal(t, "Week 1", m.Chapter)
		assert.Equal(t, "recursion", m.Title)
	}
	assert.Equal(t, 4, f.index.Len())

	// And: the store was persisted
	assert.FileExists(t, filepath.Join(f.dbDir, store.IndexFileName))
	assert.FileExists(t, filepath.Join(f.dbDir, store.RegistryFileName))
}

func TestPipeline_Scan_SkipsUnchangedAndReplacesChanged(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.write(t, "Physics/waves.txt", words(45))
	other := f.write(t, "Physics/optics.txt", "light bends when it enters glass")
	ctx := context.Background()

	n, err := f.pipeline.Scan(ctx, f.root)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// When: nothing changed
	n, err = f.pipeline.Scan(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// When: one file shrinks
	require.NoError(t, os.WriteFile(path, []byte("short replacement text"), 0o644))
	n, err = f.pipeline.Scan(ctx, f.root)

	// Then: only it is re-ingested and its stale chunks are gone
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	chunks := f.chunksOf(path)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].TotalChunks)
	assert.Len(t, f.chunksOf(other), 1)
	assert.Equal(t, 2, f.index.Len())
}

func TestPipeline_Scan_ContinuesPastBadFiles(t *testing.T) {
	f := newFixture(t, Options{})
	f.write(t, "a_empty.txt", "   ")
	f.write(t, "b_broken.docx", "not a zip archive")
	good := f.write(t, "c_good.md", "binary search halves the interval")

	n, err := f.pipeline.Scan(context.Background(), f.root)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.chunksOf(good), 1)
	assert.Equal(t, 1, f.registry.Len())
	_, registered := f.registry.Get(good)
	assert.True(t, registered)
}

func TestPipeline_Scan_NothingToDoDoesNotWrite(t *testing.T) {
	f := newFixture(t, Options{})

	n, err := f.pipeline.Scan(context.Background(), f.root)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoFileExists(t, filepath.Join(f.dbDir, store.IndexFileName))
	assert.NoFileExists(t, filepath.Join(f.dbDir, store.RegistryFileName))
}

func TestPipeline_Scan_PrunesDeletedFiles(t *testing.T) {
	f := newFixture(t, Options{PruneMissing: true})
	gone := f.write(t, "History/rome.txt", "the republic became an empire")
	kept := f.write(t, "History/greece.txt", "athens was a democracy")
	ctx := context.Background()
	_, err := f.pipeline.Scan(ctx, f.root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	n, err := f.pipeline.Scan(ctx, f.root)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, f.chunksOf(gone))
	assert.Len(t, f.chunksOf(kept), 1)
	_, registered := f.registry.Get(gone)
	assert.False(t, registered)

	// And: the pruned state was persisted
	reloaded := store.NewRegistry(f.dbDir)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{kept}, reloaded.Paths())
}

func TestPipeline_Scan_KeepsDeletedFilesWithoutPrune(t *testing.T) {
	f := newFixture(t, Options{PruneMissing: false})
	gone := f.write(t, "rome.txt", "the republic became an empire")
	ctx := context.Background()
	_, err := f.pipeline.Scan(ctx, f.root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	_, err = f.pipeline.Scan(ctx, f.root)

	require.NoError(t, err)
	assert.Len(t, f.chunksOf(gone), 1)
}

func TestPipeline_Scan_SurvivesRestart(t *testing.T) {
	// Given: a scanned folder
	f := newFixture(t, Options{})
	f.write(t, "Biology/cells.txt", "mitochondria produce energy")
	_, err := f.pipeline.Scan(context.Background(), f.root)
	require.NoError(t, err)

	// When: a new process loads the store and scans again
	idx := store.NewVectorIndex(f.embedder, store.Options{Dir: f.dbDir})
	require.NoError(t, idx.Load())
	reg := store.NewRegistry(f.dbDir)
	require.NoError(t, reg.Load())
	p, err := NewPipeline(idx, reg, Options{ChunkSize: 20, ChunkOverlap: 5, Extensions: []string{".txt"}, Root: f.root})
	require.NoError(t, err)
	n, err := p.Scan(context.Background(), f.root)

	// Then: nothing is re-ingested
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, idx.Len())
}

func TestPipeline_ProcessFile_EmbeddingFailureLeavesStateUnchanged(t *testing.T) {
	emb := &flakyEmbedder{Embedder: embed.NewStaticEmbedder(32), marker: "poison"}
	f := newFixtureWithEmbedder(t, emb, Options{})
	path := f.write(t, "notes.txt", "healthy words then poison appears")

	ok, err := f.pipeline.ProcessFile(context.Background(), path)

	assert.False(t, ok)
	assert.ErrorIs(t, err, eduerrors.ErrEmbedding)
	assert.Equal(t, 0, f.index.Len())
	_, registered := f.registry.Get(path)
	assert.False(t, registered)
}

func TestPipeline_ProcessFile_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.write(t, "slides.pptx", "binary-ish")

	ok, err := f.pipeline.ProcessFile(context.Background(), path)

	assert.False(t, ok)
	assert.ErrorIs(t, err, eduerrors.ErrUnsupportedFormat)
}

func TestPipeline_AddFile_Persists(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.write(t, "Chemistry/Bonds/covalent.md", "atoms share electron pairs")

	ok, err := f.pipeline.AddFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.pipeline.AddFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)

	reloaded := store.NewVectorIndex(f.embedder, store.Options{Dir: f.dbDir})
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())
	assert.Equal(t, "Bonds", f.pipeline.DeriveMetadata(path).Chapter)
}

func TestPipeline_Summary_And_Reset(t *testing.T) {
	f := newFixture(t, Options{})
	f.write(t, "Math/a.txt", words(30))
	f.write(t, "Math/b.txt", "short")
	f.write(t, "loose.txt", "no course folder")
	_, err := f.pipeline.Scan(context.Background(), f.root)
	require.NoError(t, err)

	s := f.pipeline.Summary()
	assert.Equal(t, 4, s.TotalChunks)
	assert.Equal(t, map[string]int{"Math": 3, "General": 1}, s.Courses)
	assert.Equal(t, 3, s.ProcessedFiles)
	assert.Equal(t, 64, s.Dimensions)
	assert.Greater(t, s.DiskBytes, int64(0))

	require.NoError(t, f.pipeline.Reset())
	s = f.pipeline.Summary()
	assert.Equal(t, 0, s.TotalChunks)
	assert.Equal(t, 0, s.ProcessedFiles)
	assert.Equal(t, int64(0), s.DiskBytes)
}

func TestPipeline_Scan_ReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	f := newFixture(t, Options{Progress: func(done, total int, path string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 2, total)
		seen = append(seen, filepath.ToSlash(path))
	}})
	f.write(t, "b.txt", "second file")
	f.write(t, "a.txt", "first file")

	_, err := f.pipeline.Scan(context.Background(), f.root)

	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, seen)
}

func TestPipeline_Watch_RejectsNonPositiveInterval(t *testing.T) {
	f := newFixture(t, Options{})

	err := f.pipeline.Watch(context.Background(), f.root, 0)

	assert.ErrorIs(t, err, eduerrors.ErrConfig)
}

func TestPipeline_Watch_ScansUntilCancelled(t *testing.T) {
	// Given: a watch with a long interval and a manual trigger
	f := newFixture(t, Options{})
	f.write(t, "first.txt", "present before the watch starts")
	trigger := make(chan struct{}, 1)
	f.pipeline.SetTrigger(trigger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.pipeline.Watch(ctx, f.root, time.Hour) }()

	// Then: the initial scan runs immediately
	require.Eventually(t, func() bool { return f.index.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	// When: a new file appears and the trigger fires
	f.write(t, "second.txt", "added while watching")
	trigger <- struct{}{}
	require.Eventually(t, func() bool { return f.index.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	// And: cancellation stops the loop cleanly
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}
