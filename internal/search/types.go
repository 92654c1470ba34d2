// Package search answers topic queries by combining a literal metadata pass
// over titles and topics with a semantic pass over chunk content.
package search

import (
	"context"

	"github.com/Aman-CERP/edumate/internal/store"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// MatchType records which pass produced a match.
type MatchType string

const (
	// MatchMetadata is a case-insensitive title or topic hit.
	MatchMetadata MatchType = "metadata"
	// MatchContent is a semantic similarity hit.
	MatchContent MatchType = "content"
)

// Match is one search hit. Similarity is the fixed metadata score for
// metadata hits and the cosine similarity for content hits.
type Match struct {
	Text       string         `json:"text"`
	Metadata   store.Metadata `json:"metadata"`
	Similarity float32        `json:"similarity"`
	MatchType  MatchType      `json:"match_type"`
}

// TopicResult is the outcome of SearchByTopic.
type TopicResult struct {
	Matches []Match `json:"matches"`
	// TotalFound counts distinct files before truncation to topK.
	TotalFound int `json:"total_found"`
	// HasExactMatch is true when the metadata pass found anything.
	HasExactMatch bool `json:"has_exact_match"`
}

// Index is the subset of the vector index the coordinator reads.
type Index interface {
	Search(ctx context.Context, query string, topK int, threshold float32) ([]store.Result, error)
	Each(fn func(text string, meta store.Metadata) bool)
}

// Recorder receives the outcome of every topic search.
type Recorder interface {
	Record(event telemetry.QueryEvent)
}

// Options configures a Coordinator.
type Options struct {
	// TopK is used when a caller passes a non-positive topK. Default: 3
	TopK int
	// Threshold is the minimum similarity for content hits. Zero selects
	// the default; use WithThreshold for an explicit zero. Default: 0.6
	Threshold float32
	// MetadataScore is the similarity assigned to metadata hits. Default: 0.95
	MetadataScore float32
}

// DefaultOptions returns the default coordinator options.
func DefaultOptions() Options {
	return Options{
		TopK:          3,
		Threshold:     0.6,
		MetadataScore: 0.95,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = d.TopK
	}
	if o.Threshold == 0 {
		o.Threshold = d.Threshold
	}
	if o.MetadataScore == 0 {
		o.MetadataScore = d.MetadataScore
	}
	return o
}
