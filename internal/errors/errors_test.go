package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Error wrapping preserves original error
func TestEduError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping it as an embedding failure
	eduErr := EmbeddingError("embed chunk", originalErr)

	// Then: unwrapping returns the original error
	require.NotNil(t, eduErr)
	assert.Equal(t, originalErr, errors.Unwrap(eduErr))
	assert.True(t, errors.Is(eduErr, originalErr))
}

func TestEduError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *EduError
		expected string
	}{
		{
			name:     "no cause",
			err:      New(ErrCodeChunkParams, "overlap must be less than size", nil),
			expected: "[ERR_102_CHUNK_PARAMS] overlap must be less than size",
		},
		{
			name:     "cause appended",
			err:      StorageError("write index", errors.New("disk full")),
			expected: "[ERR_201_STORAGE] write index: disk full",
		},
		{
			name:     "wrapped message not repeated",
			err:      Wrap(ErrCodeInternal, errors.New("boom")),
			expected: "[ERR_501_INTERNAL] boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestEduError_Is_MatchesTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"extraction", ExtractionError("a.pdf", nil), ErrExtraction, true},
		{"unsupported is not extraction", UnsupportedFormatError("a.xls", ".xls"), ErrExtraction, false},
		{"unsupported", UnsupportedFormatError("a.xls", ".xls"), ErrUnsupportedFormat, true},
		{"corrupt is storage", CorruptIndexError("bad header", nil), ErrStorage, true},
		{"dimension mismatch is storage", New(ErrCodeDimensionMismatch, "dims", nil), ErrStorage, true},
		{"locked is not storage", New(ErrCodeStoreLocked, "locked", nil), ErrStorage, false},
		{"chunk params is config", New(ErrCodeChunkParams, "bad", nil), ErrConfig, true},
		{"embedding unavailable is embedding", New(ErrCodeEmbeddingUnavailable, "down", nil), ErrEmbedding, true},
		{"wrapped with fmt", fmt.Errorf("process: %w", ExtractionError("a.docx", nil)), ErrExtraction, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestNew_DerivesCategorySeverityRetryable(t *testing.T) {
	err := New(ErrCodeEmbeddingFailed, "timeout", nil)
	assert.Equal(t, CategoryEmbedding, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.True(t, err.Retryable)

	err = New(ErrCodeExtractionFailed, "empty", nil)
	assert.Equal(t, CategoryDocument, err.Category)
	assert.Equal(t, SeverityWarning, err.Severity)
	assert.False(t, err.Retryable)

	err = New(ErrCodeChunkParams, "overlap", nil)
	assert.Equal(t, CategoryConfig, err.Category)
	assert.True(t, IsFatal(err))
}

func TestHelpers_WorkThroughWrapping(t *testing.T) {
	base := CorruptIndexError("short read", nil).WithDetail("artifact", "index")
	wrapped := fmt.Errorf("load: %w", base)

	assert.Equal(t, ErrCodeCorruptIndex, GetCode(wrapped))
	assert.Contains(t, GetSuggestion(wrapped), "edumate clear")
	assert.False(t, IsRetryable(wrapped))
	assert.Equal(t, "index", base.Details["artifact"])

	assert.Equal(t, "", GetCode(errors.New("plain")))
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}
