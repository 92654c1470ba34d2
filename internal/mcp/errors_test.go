package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"empty query", eduerrors.New(eduerrors.ErrCodeQueryEmpty, "search topic is empty", nil), ErrCodeInvalidParams},
		{"config", eduerrors.ConfigError("bad chunk size", nil), ErrCodeInvalidParams},
		{"corrupt store", eduerrors.CorruptIndexError("bad header", nil), ErrCodeIndexUnavailable},
		{"embedding", eduerrors.EmbeddingError("backend down", nil), ErrCodeEmbeddingFailed},
		{"extraction", eduerrors.ExtractionError("/docs/a.pdf", nil), ErrCodeDocument},
		{"wrapped embedding", fmt.Errorf("search: %w", eduerrors.EmbeddingError("x", nil)), ErrCodeEmbeddingFailed},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeTimeout},
		{"unknown", errors.New("boom"), ErrCodeInternalError},
		{"already mcp", NewInvalidParamsError("x"), ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantCode, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := eduerrors.ConfigError("chunk_overlap must be smaller than chunk_size", nil).
		WithSuggestion("Lower chunking.overlap in .edumate.yaml")

	got := MapError(err)

	assert.Contains(t, got.Message, "chunk_overlap")
	assert.Contains(t, got.Message, "Lower chunking.overlap")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("summarise")
	assert.Equal(t, "MCP error -32601: Tool 'summarise' not found.", err.Error())
}
