package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Aman-CERP/edumate/internal/config"
	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings; no network.
	ProviderStatic ProviderType = "static"
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"
)

// NewEmbedder builds the configured provider. Remote providers are wrapped
// with retries and a circuit breaker; all providers get an LRU cache.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	// Validated config always parses; a zero timeout falls back to the default.
	timeout, _ := time.ParseDuration(cfg.Timeout)

	var inner Embedder
	switch ProviderType(strings.ToLower(cfg.Provider)) {
	case ProviderStatic, "":
		inner = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOllama:
		e, err := NewOllamaEmbedder(ctx, OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, eduerrors.New(eduerrors.ErrCodeEmbeddingUnavailable, "ollama embedder unavailable", err).
				WithSuggestion("start Ollama ('ollama serve') or set embeddings.provider: static")
		}
		inner = NewResilientEmbedder(e, eduerrors.DefaultRetryConfig(), nil)

	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, eduerrors.New(eduerrors.ErrCodeEmbeddingUnavailable, "openai embedder unavailable", err).
				WithSuggestion("set OPENAI_API_KEY in the environment or a .env file")
		}
		inner = NewResilientEmbedder(e, eduerrors.DefaultRetryConfig(), nil)

	default:
		return nil, eduerrors.ConfigError(fmt.Sprintf("unknown embeddings provider %q", cfg.Provider), nil)
	}

	slog.Debug("embedder ready",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
