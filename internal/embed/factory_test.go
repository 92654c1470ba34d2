package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edumate/internal/config"
	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

func TestNewEmbedder_Static_IsCached(t *testing.T) {
	cfg := config.NewConfig().Embeddings

	e, err := NewEmbedder(context.Background(), cfg)

	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	_, ok := e.(*CachedEmbedder)
	assert.True(t, ok)
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestNewEmbedder_UnknownProvider_ReturnsConfigError(t *testing.T) {
	cfg := config.NewConfig().Embeddings
	cfg.Provider = "word2vec"

	_, err := NewEmbedder(context.Background(), cfg)

	assert.ErrorIs(t, err, eduerrors.ErrConfig)
}

func TestNewEmbedder_OpenAIWithoutKey_ReturnsEmbeddingError(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := config.NewConfig().Embeddings
	cfg.Provider = "openai"

	_, err := NewEmbedder(context.Background(), cfg)

	assert.ErrorIs(t, err, eduerrors.ErrEmbedding)
}
