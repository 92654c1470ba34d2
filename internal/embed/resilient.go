package embed

import (
	"context"
	"errors"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// ResilientEmbedder retries transient provider failures and opens a
// circuit breaker once the provider keeps failing. Every failure it
// returns is an embedding error.
type ResilientEmbedder struct {
	inner   Embedder
	retry   eduerrors.RetryConfig
	breaker *eduerrors.CircuitBreaker
}

var _ Embedder = (*ResilientEmbedder)(nil)

// NewResilientEmbedder wraps inner with retry and circuit breaking.
func NewResilientEmbedder(inner Embedder, retry eduerrors.RetryConfig, breaker *eduerrors.CircuitBreaker) *ResilientEmbedder {
	if breaker == nil {
		breaker = eduerrors.NewCircuitBreaker(inner.ModelName())
	}
	// Retrying cannot help once the breaker is open or the caller gave up.
	retry.Retryable = func(err error) bool {
		return !errors.Is(err, eduerrors.ErrCircuitOpen) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	return &ResilientEmbedder{inner: inner, retry: retry, breaker: breaker}
}

// Embed generates embedding for a single text.
func (r *ResilientEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := eduerrors.RetryWithResult(ctx, r.retry, func() ([]float32, error) {
		return eduerrors.Execute(r.breaker, func() ([]float32, error) {
			return r.inner.Embed(ctx, text)
		})
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (r *ResilientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := eduerrors.RetryWithResult(ctx, r.retry, func() ([][]float32, error) {
		return eduerrors.Execute(r.breaker, func() ([][]float32, error) {
			return r.inner.EmbedBatch(ctx, texts)
		})
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	return vecs, nil
}

func (r *ResilientEmbedder) wrap(err error) error {
	if errors.Is(err, eduerrors.ErrCircuitOpen) {
		return eduerrors.New(eduerrors.ErrCodeEmbeddingUnavailable, "embedding provider unavailable", err).
			WithDetail("model", r.inner.ModelName()).
			WithSuggestion("check that the embedding provider is running, then rescan")
	}
	return eduerrors.EmbeddingError("embedding request failed", err).WithDetail("model", r.inner.ModelName())
}

// Dimensions returns the embedding dimension (passthrough to inner).
func (r *ResilientEmbedder) Dimensions() int {
	return r.inner.Dimensions()
}

// ModelName returns the model identifier (passthrough to inner).
func (r *ResilientEmbedder) ModelName() string {
	return r.inner.ModelName()
}

// Available reports false while the circuit is open.
func (r *ResilientEmbedder) Available(ctx context.Context) bool {
	return r.breaker.State() != eduerrors.StateOpen && r.inner.Available(ctx)
}

// Close closes the inner embedder.
func (r *ResilientEmbedder) Close() error {
	return r.inner.Close()
}
