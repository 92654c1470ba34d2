package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/edumate/internal/embed"
	"github.com/Aman-CERP/edumate/internal/search"
)

// termEmbedder maps texts mentioning term to one axis and everything else
// to the other, so similarity to term is exactly 1 or 0.
type termEmbedder struct {
	embed.Embedder
	term string
}

func (e *termEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func (e *termEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), e.term) {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

func TestScanThenSearchByTopic_FindsContentInOtherCourse(t *testing.T) {
	// Given: one short file per course, only the second mentioning recursion
	emb := &termEmbedder{Embedder: embed.NewStaticEmbedder(2), term: "recursion"}
	f := newFixtureWithEmbedder(t, emb, Options{ChunkSize: 500, ChunkOverlap: 50})
	f.write(t, "CourseA/Chapter1/intro.txt", words(300))
	notes := strings.Fields(words(800))
	notes[400] = "recursion"
	f.write(t, "CourseB/Chapter2/notes.txt", strings.Join(notes, " "))

	// When: scanning the root
	n, err := f.pipeline.Scan(context.Background(), f.root)

	// Then: both files are processed
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// When: searching the freshly built index for the topic
	res, err := search.NewCoordinator(f.index).SearchByTopic(context.Background(), "recursion", 3)

	// Then: the CourseB notes match on content only
	require.NoError(t, err)
	require.NotEmpty(t, res.Matches)
	assert.Equal(t, "CourseB", res.Matches[0].Metadata.Course)
	assert.Equal(t, "notes", res.Matches[0].Metadata.Title)
	assert.Equal(t, search.MatchContent, res.Matches[0].MatchType)
	for _, m := range res.Matches {
		assert.NotEqual(t, "CourseA", m.Metadata.Course)
	}
	assert.False(t, res.HasExactMatch)
}
