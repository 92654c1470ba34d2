// Package store holds the vector index, its on-disk artifacts and the
// processed-file registry.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Aman-CERP/edumate/internal/embed"
	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// Options configures a VectorIndex.
type Options struct {
	// Dir is the database directory holding the artifacts.
	Dir     string
	Backend Backend
	HNSW    HNSWOptions
}

// VectorIndex stores unit-normalized vectors together with the chunk text
// and metadata at the same ordinal position. The three sequences always
// have equal length.
type VectorIndex struct {
	dir      string
	embedder embed.Embedder
	dims     int
	backend  Backend

	mu      sync.RWMutex
	vectors [][]float32
	texts   []string
	metas   []Metadata
	ann     *annGraph
}

// NewVectorIndex creates an empty index whose dimension is the embedder's.
// Call Load to read persisted state.
func NewVectorIndex(embedder embed.Embedder, opts Options) *VectorIndex {
	idx := &VectorIndex{
		dir:      opts.Dir,
		embedder: embedder,
		dims:     embedder.Dimensions(),
		backend:  opts.Backend,
	}
	if idx.backend == "" {
		idx.backend = BackendFlat
	}
	if idx.backend == BackendHNSW {
		idx.ann = newANNGraph(opts.HNSW)
	}
	return idx
}

// Dir returns the database directory.
func (x *VectorIndex) Dir() string {
	return x.dir
}

// Len returns the number of entries.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// embed computes normalized embeddings for texts. Every failure is an
// embedding error.
func (x *VectorIndex) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, eduerrors.ErrEmbedding) {
			return nil, err
		}
		return nil, eduerrors.EmbeddingError("failed to embed text", err)
	}
	if len(vecs) != len(texts) {
		return nil, eduerrors.EmbeddingError(
			fmt.Sprintf("embedder returned %d vectors for %d texts", len(vecs), len(texts)), nil)
	}
	for i, v := range vecs {
		if len(v) != x.dims {
			return nil, eduerrors.EmbeddingError(
				fmt.Sprintf("embedder returned %d dimensions, index has %d", len(v), x.dims), nil)
		}
		vecs[i] = normalized(v)
	}
	return vecs, nil
}

// Add embeds text and appends it with meta as one entry. If embedding
// fails nothing is appended.
func (x *VectorIndex) Add(ctx context.Context, text string, meta Metadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	vecs, err := x.embed(ctx, []string{text})
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.appendLocked(vecs[0], text, meta)
	return nil
}

func (x *VectorIndex) appendLocked(vec []float32, text string, meta Metadata) {
	x.vectors = append(x.vectors, vec)
	x.texts = append(x.texts, text)
	x.metas = append(x.metas, meta)
	if x.ann != nil {
		x.ann.add(len(x.vectors)-1, vec)
	}
}

// ReplaceFile swaps every entry of fileID for the given chunks. All
// chunks are embedded first; if that fails the index is unchanged.
// Surviving entries keep their relative order and the new chunks are
// appended. It returns the number of entries removed.
func (x *VectorIndex) ReplaceFile(ctx context.Context, fileID string, texts []string, metas []Metadata) (int, error) {
	if len(texts) != len(metas) {
		return 0, eduerrors.New(eduerrors.ErrCodeInternal,
			fmt.Sprintf("%d texts for %d metadata records", len(texts), len(metas)), nil)
	}
	for _, m := range metas {
		if err := m.Validate(); err != nil {
			return 0, err
		}
		if m.ID != fileID {
			return 0, eduerrors.New(eduerrors.ErrCodeInvalidMetadata,
				fmt.Sprintf("chunk id %s does not belong to file %s", m.ID, fileID), nil)
		}
	}

	vecs, err := x.embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	removed := x.deleteLocked(fileID)
	for i := range texts {
		x.appendLocked(vecs[i], texts[i], metas[i])
	}
	return removed, nil
}

// DeleteFile removes every entry of fileID and returns how many there were.
func (x *VectorIndex) DeleteFile(fileID string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.deleteLocked(fileID)
}

func (x *VectorIndex) deleteLocked(fileID string) int {
	keep := 0
	for i := range x.metas {
		if x.metas[i].ID == fileID {
			continue
		}
		x.vectors[keep] = x.vectors[i]
		x.texts[keep] = x.texts[i]
		x.metas[keep] = x.metas[i]
		keep++
	}
	removed := len(x.metas) - keep
	if removed == 0 {
		return 0
	}

	clear(x.vectors[keep:])
	clear(x.metas[keep:])
	x.vectors = x.vectors[:keep]
	x.texts = x.texts[:keep]
	x.metas = x.metas[:keep]
	// Ordinals shifted, so the graph keys are stale.
	if x.ann != nil {
		x.ann.rebuild(x.vectors)
	}
	return removed
}

// Search returns up to topK entries whose cosine similarity to query is at
// least threshold, best first, ties broken by insertion order. An empty
// index yields an empty result without calling the embedder.
func (x *VectorIndex) Search(ctx context.Context, query string, topK int, threshold float32) ([]Result, error) {
	if topK <= 0 || x.Len() == 0 {
		return []Result{}, nil
	}

	vecs, err := x.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	q := vecs[0]

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		ordinal int
		sim     float32
	}
	var hits []scored
	consider := func(i int) {
		if sim := dot(q, x.vectors[i]); sim >= threshold {
			hits = append(hits, scored{i, sim})
		}
	}

	if x.ann != nil {
		for _, i := range x.ann.candidates(q, max(topK*4, x.ann.opts.EfSearch)) {
			if i >= 0 && i < len(x.vectors) {
				consider(i)
			}
		}
	} else {
		for i := range x.vectors {
			consider(i)
		}
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].sim != hits[b].sim {
			return hits[a].sim > hits[b].sim
		}
		return hits[a].ordinal < hits[b].ordinal
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Text:       x.texts[h.ordinal],
			Metadata:   cloneMetadata(x.metas[h.ordinal]),
			Similarity: h.sim,
		}
	}
	return results, nil
}

// Each calls fn for every entry in insertion order until fn returns false.
// fn receives a copy of the metadata and must not call back into the index.
func (x *VectorIndex) Each(fn func(text string, meta Metadata) bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for i := range x.metas {
		if !fn(x.texts[i], cloneMetadata(x.metas[i])) {
			return
		}
	}
}

// Stats reports the entry count and sizes.
func (x *VectorIndex) Stats() Stats {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var approx int64
	approx += int64(len(x.vectors)) * int64(x.dims) * 4
	for i := range x.texts {
		approx += int64(len(x.texts[i]))
		m := x.metas[i]
		approx += int64(len(m.ID) + len(m.FilePath) + len(m.Title) + len(m.Course) + len(m.Chapter) + 16)
		for _, t := range m.Topics {
			approx += int64(len(t))
		}
	}

	var disk int64
	for _, name := range []string{IndexFileName, MetadataFileName, DocumentsFileName} {
		disk += fileSize(filepath.Join(x.dir, name))
	}

	return Stats{
		Count:      len(x.vectors),
		Dimensions: x.dims,
		Backend:    x.backend,
		ApproxSize: approx,
		DiskBytes:  disk,
	}
}

// Save persists the three artifacts. Each is written to a temp file first
// and only when all writes succeed are they committed (see commitArtifacts).
// When Save returns an error the previous artifacts are in place. A crash
// during the commit can still leave artifacts of two saves, which Load
// reports as a storage error.
func (x *VectorIndex) Save() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	metas, texts := x.metas, x.texts
	if metas == nil {
		metas, texts = []Metadata{}, []string{}
	}
	metaBytes, err := gobBytes(metas)
	if err != nil {
		return eduerrors.StorageError("failed to encode metadata", err)
	}
	docBytes, err := gobBytes(texts)
	if err != nil {
		return eduerrors.StorageError("failed to encode documents", err)
	}

	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{IndexFileName, func(w io.Writer) error { return encodeVectors(w, x.dims, x.vectors) }},
		{MetadataFileName, func(w io.Writer) error { _, err := w.Write(metaBytes); return err }},
		{DocumentsFileName, func(w io.Writer) error { _, err := w.Write(docBytes); return err }},
	}

	temps := make([]string, 0, len(writers))
	cleanup := func() {
		for _, t := range temps {
			_ = os.Remove(t)
		}
	}
	for _, w := range writers {
		tmp, err := writeTemp(filepath.Join(x.dir, w.name), w.write)
		if err != nil {
			cleanup()
			return eduerrors.StorageError(fmt.Sprintf("failed to write %s", w.name), err)
		}
		temps = append(temps, tmp)
	}

	names := make([]string, len(writers))
	for i, w := range writers {
		names[i] = w.name
	}
	if err := commitArtifacts(x.dir, names, temps); err != nil {
		cleanup()
		return eduerrors.StorageError("failed to replace index artifacts", err)
	}

	slog.Debug("index saved",
		slog.String("dir", x.dir),
		slog.Int("entries", len(x.vectors)))
	return nil
}

// Load replaces the in-memory state with the persisted artifacts. A store
// with no artifacts loads as empty. Missing, unreadable, misaligned or
// dimension-incompatible artifacts leave the index empty and return a
// storage error; callers warn and rebuild.
func (x *VectorIndex) Load() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.resetLocked()

	indexPath := filepath.Join(x.dir, IndexFileName)
	metaPath := filepath.Join(x.dir, MetadataFileName)
	docPath := filepath.Join(x.dir, DocumentsFileName)

	present := 0
	for _, p := range []string{indexPath, metaPath, docPath} {
		if exists(p) {
			present++
		}
	}
	if present == 0 {
		return nil
	}
	if present < 3 {
		return eduerrors.CorruptIndexError("store is missing artifacts", nil).WithDetail("dir", x.dir)
	}

	f, err := os.Open(indexPath)
	if err != nil {
		return eduerrors.StorageError("failed to open index", err)
	}
	vectors, err := decodeVectors(f, fileSize(indexPath), x.dims)
	_ = f.Close()
	if errors.Is(err, errDimensionMismatch) {
		return eduerrors.New(eduerrors.ErrCodeDimensionMismatch, "store is incompatible with the embedder", err).
			WithSuggestion("use the embedding model the store was built with, or clear and rescan")
	}
	if err != nil {
		return eduerrors.CorruptIndexError("failed to decode index", err)
	}

	var metas []Metadata
	if err := readGob(metaPath, &metas); err != nil {
		return eduerrors.CorruptIndexError("failed to decode metadata", err)
	}
	var texts []string
	if err := readGob(docPath, &texts); err != nil {
		return eduerrors.CorruptIndexError("failed to decode documents", err)
	}

	if len(metas) != len(vectors) || len(texts) != len(vectors) {
		return eduerrors.CorruptIndexError(
			fmt.Sprintf("artifacts disagree: %d vectors, %d metadata, %d documents", len(vectors), len(metas), len(texts)), nil)
	}

	x.vectors, x.texts, x.metas = vectors, texts, metas
	if x.ann != nil {
		x.ann.rebuild(x.vectors)
	}
	return nil
}

// Clear drops every entry and deletes the artifacts. Irreversible.
func (x *VectorIndex) Clear() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.resetLocked()

	for _, name := range []string{IndexFileName, MetadataFileName, DocumentsFileName} {
		if err := os.Remove(filepath.Join(x.dir, name)); err != nil && !os.IsNotExist(err) {
			return eduerrors.StorageError(fmt.Sprintf("failed to delete %s", name), err)
		}
	}
	return nil
}

func (x *VectorIndex) resetLocked() {
	x.vectors, x.texts, x.metas = nil, nil, nil
	if x.ann != nil {
		x.ann.reset()
	}
}

func normalized(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSquares float64
	for _, val := range out {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return out
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range out {
		out[i] *= inv
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func cloneMetadata(m Metadata) Metadata {
	m.Topics = append([]string(nil), m.Topics...)
	return m
}
