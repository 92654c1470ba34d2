package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunk_WindowsWithOverlap(t *testing.T) {
	// Given: 1200 words with the default window
	text := words(1200)

	// When: chunking
	chunks, err := Chunk(text, 500, 50)

	// Then: windows start 450 words apart and the last one is partial
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[0]), 500)
	assert.Len(t, strings.Fields(chunks[1]), 500)
	assert.Len(t, strings.Fields(chunks[2]), 300)
	assert.True(t, strings.HasPrefix(chunks[1], "w450 "))
	assert.True(t, strings.HasSuffix(chunks[0], " w499"))
	assert.True(t, strings.HasPrefix(chunks[2], "w900 "))
}

func TestChunk_SmallInputs(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{"empty", "", 5, 1, []string{}},
		{"whitespace only", " \n\t ", 5, 1, []string{}},
		{"shorter than window", "a b c", 5, 1, []string{"a b c"}},
		{"exact window", "a b c d", 4, 1, []string{"a b c d", "d"}},
		{"trailing single word", "a b c d e f g h i j", 4, 1, []string{"a b c d", "d e f g", "g h i j", "j"}},
		{"no overlap", "a b c d e", 2, 0, []string{"a b", "c d", "e"}},
		{"collapses whitespace", "a\n\nb\tc", 10, 0, []string{"a b c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Chunk(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunk_InvalidParams(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 50, 100},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk("some words here", tt.size, tt.overlap)

			require.Error(t, err)
			assert.ErrorIs(t, err, eduerrors.ErrConfig)
			assert.Equal(t, eduerrors.ErrCodeChunkParams, eduerrors.GetCode(err))
		})
	}
}
