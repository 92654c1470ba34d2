package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
	"github.com/Aman-CERP/edumate/internal/store"
	"github.com/Aman-CERP/edumate/internal/telemetry"
)

// Coordinator runs hybrid topic searches against one index.
type Coordinator struct {
	index    Index
	opts     Options
	recorder Recorder
}

// CoordinatorOption configures the coordinator.
type CoordinatorOption func(*Coordinator)

// WithRecorder sets an optional recorder for query telemetry.
func WithRecorder(r Recorder) CoordinatorOption {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithThreshold sets the content similarity threshold exactly. Unlike
// WithOptions, zero is kept and admits every content hit.
func WithThreshold(threshold float32) CoordinatorOption {
	return func(c *Coordinator) {
		c.opts.Threshold = threshold
	}
}

// WithOptions overrides the default scores and limits.
func WithOptions(opts Options) CoordinatorOption {
	return func(c *Coordinator) {
		c.opts = opts.withDefaults()
	}
}

// NewCoordinator creates a coordinator over index.
func NewCoordinator(index Index, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		index: index,
		opts:  DefaultOptions(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchByTopic returns up to topK files relevant to topic. Metadata hits
// come before content hits of equal score and each file appears once.
// A blank topic is rejected; otherwise the topic is matched as given,
// surrounding whitespace included.
func (c *Coordinator) SearchByTopic(ctx context.Context, topic string, topK int) (*TopicResult, error) {
	start := time.Now()

	if strings.TrimSpace(topic) == "" {
		return nil, eduerrors.New(eduerrors.ErrCodeQueryEmpty, "search topic is empty", nil)
	}
	if topK <= 0 {
		topK = c.opts.TopK
	}

	// Both passes are independent; run them in parallel.
	var metaMatches, contentMatches []Match
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metaMatches = c.metadataPass(topic)
		return nil
	})
	g.Go(func() error {
		var err error
		contentMatches, err = c.contentPass(gctx, topic, topK)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	combined := make([]Match, 0, len(metaMatches)+len(contentMatches))
	combined = append(combined, metaMatches...)
	combined = append(combined, contentMatches...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Similarity > combined[j].Similarity
	})

	unique := dedupByFile(combined)
	result := &TopicResult{
		Matches:       unique,
		TotalFound:    len(unique),
		HasExactMatch: len(metaMatches) > 0,
	}
	if len(result.Matches) > topK {
		result.Matches = result.Matches[:topK]
	}

	slog.Debug("topic search",
		slog.String("topic", topic),
		slog.Int("metadata_hits", len(metaMatches)),
		slog.Int("content_hits", len(contentMatches)),
		slog.Int("returned", len(result.Matches)),
		slog.Duration("latency", time.Since(start)))

	c.record(topic, result, time.Since(start))
	return result, nil
}

// BestMatchContent returns the text of the top match of a default hybrid
// search for query, or "" when there is none.
func (c *Coordinator) BestMatchContent(ctx context.Context, query string) (string, error) {
	res, err := c.SearchByTopic(ctx, query, 0)
	if err != nil {
		return "", err
	}
	if len(res.Matches) == 0 {
		return "", nil
	}
	return res.Matches[0].Text, nil
}

// metadataPass matches topic as a case-insensitive substring of each
// entry's title or any of its topics.
func (c *Coordinator) metadataPass(topic string) []Match {
	needle := strings.ToLower(topic)
	var matches []Match
	c.index.Each(func(text string, meta store.Metadata) bool {
		if metadataMatches(meta, needle) {
			matches = append(matches, Match{
				Text:       text,
				Metadata:   meta,
				Similarity: c.opts.MetadataScore,
				MatchType:  MatchMetadata,
			})
		}
		return true
	})
	return matches
}

func metadataMatches(meta store.Metadata, needle string) bool {
	if strings.Contains(strings.ToLower(meta.Title), needle) {
		return true
	}
	for _, t := range meta.Topics {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func (c *Coordinator) contentPass(ctx context.Context, topic string, topK int) ([]Match, error) {
	results, err := c.index.Search(ctx, topic, topK, c.opts.Threshold)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Text:       r.Text,
			Metadata:   r.Metadata,
			Similarity: r.Similarity,
			MatchType:  MatchContent,
		}
	}
	return matches, nil
}

// dedupByFile keeps the first match for each file ID.
func dedupByFile(matches []Match) []Match {
	seen := make(map[string]struct{}, len(matches))
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.Metadata.ID]; ok {
			continue
		}
		seen[m.Metadata.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func (c *Coordinator) record(topic string, result *TopicResult, latency time.Duration) {
	if c.recorder == nil {
		return
	}
	kind := telemetry.MatchNone
	switch {
	case result.HasExactMatch:
		kind = telemetry.MatchExact
	case len(result.Matches) > 0:
		kind = telemetry.MatchSemantic
	}
	c.recorder.Record(telemetry.QueryEvent{
		Query:       topic,
		Kind:        kind,
		ResultCount: len(result.Matches),
		TotalFound:  result.TotalFound,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}
