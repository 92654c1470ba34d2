// Package embed turns text into fixed-length vectors.
//
// Providers: a dependency-free hashed embedder (static), Ollama's HTTP API
// and the OpenAI embeddings API. Remote providers are wrapped with retries,
// a circuit breaker and an LRU cache by NewEmbedder.
package embed

import (
	"context"
	"math"
	"time"
)

const (
	// StaticDimensions is the embedding dimension for the static embedder.
	StaticDimensions = 256

	// DefaultBatchSize is the number of texts sent per remote request.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single remote embedding request.
	DefaultTimeout = 30 * time.Second
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales v to unit length in place and returns it.
// Zero vectors are returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
	return v
}

// toFloat32 converts API vectors of any float width.
func toFloat32[F float32 | float64](in []F) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
