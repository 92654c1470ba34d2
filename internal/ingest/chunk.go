package ingest

import (
	"fmt"
	"strings"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// ValidateChunkParams rejects window settings that cannot make progress.
func ValidateChunkParams(size, overlap int) error {
	switch {
	case size <= 0:
		return eduerrors.New(eduerrors.ErrCodeChunkParams,
			fmt.Sprintf("chunk size must be positive, got %d", size), nil)
	case overlap < 0:
		return eduerrors.New(eduerrors.ErrCodeChunkParams,
			fmt.Sprintf("chunk overlap must not be negative, got %d", overlap), nil)
	case overlap >= size:
		return eduerrors.New(eduerrors.ErrCodeChunkParams,
			fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", overlap, size), nil).
			WithSuggestion("lower chunking.overlap or raise chunking.size")
	}
	return nil
}

// Chunk splits text on whitespace into windows of size words. Consecutive
// windows start size-overlap words apart, so they share overlap words.
// The last window may be shorter. Empty text yields no chunks.
func Chunk(text string, size, overlap int) ([]string, error) {
	if err := ValidateChunkParams(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks, nil
}
