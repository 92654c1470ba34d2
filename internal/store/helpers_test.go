package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// fakeEmbedder returns preset vectors per text. Texts without a preset get
// a vector derived from their length so they are still deterministic.
type fakeEmbedder struct {
	dims    int
	vectors map[string][]float32
	fail    map[string]bool

	mu    sync.Mutex
	calls int
}

func newFakeEmbedder(dims int) *fakeEmbedder {
	return &fakeEmbedder{dims: dims, vectors: map[string][]float32{}, fail: map[string]bool{}}
}

func (f *fakeEmbedder) set(text string, vec ...float32) *fakeEmbedder {
	f.vectors[text] = vec
	return f
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.fail[t] {
			return nil, errors.New("model crashed")
		}
		if v, ok := f.vectors[t]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		v := make([]float32, f.dims)
		v[len(t)%f.dims] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                  { return f.dims }
func (f *fakeEmbedder) ModelName() string                { return fmt.Sprintf("fake-%d", f.dims) }
func (f *fakeEmbedder) Available(_ context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                     { return nil }

func meta(id string, chunk, total int) Metadata {
	return Metadata{
		ID:          id,
		FilePath:    "/docs/" + id + ".txt",
		Title:       id,
		Course:      "General",
		Chapter:     "General",
		Topics:      []string{},
		ChunkID:     chunk,
		TotalChunks: total,
	}
}

// aligned checks the parallel-sequence invariant directly.
func aligned(x *VectorIndex) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors) == len(x.texts) && len(x.texts) == len(x.metas)
}
