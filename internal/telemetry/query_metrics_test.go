package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	b := NewCircularBuffer[int](3)
	for i := 1; i <= 5; i++ {
		b.Add(i)
	}

	assert.Equal(t, 3, b.Size())
	assert.Equal(t, []int{3, 4, 5}, b.Items())
}

func TestCircularBuffer_Empty(t *testing.T) {
	b := NewCircularBuffer[string](0)

	assert.Equal(t, 0, b.Size())
	assert.Empty(t, b.Items())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency  time.Duration
		expected LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{499 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		t.Run(tt.latency.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	assert.Equal(t, []string{"binary", "search", "trees"}, ExtractTerms("  Binary SEARCH of trees "))
	assert.Nil(t, ExtractTerms("a an"))
	assert.Nil(t, ExtractTerms(""))
}

func TestQueryMetrics_Record(t *testing.T) {
	// Given: an in-memory collector
	m := NewQueryMetrics(nil)
	defer m.Close()

	// When: recording a mix of outcomes
	m.Record(QueryEvent{Query: "recursion basics", Kind: MatchExact, ResultCount: 3, Latency: 5 * time.Millisecond})
	m.Record(QueryEvent{Query: "recursion depth", Kind: MatchSemantic, ResultCount: 1, Latency: 20 * time.Millisecond})
	m.Record(QueryEvent{Query: "quantum chromodynamics", Kind: MatchNone, ResultCount: 0, Latency: 20 * time.Millisecond})

	// Then: the snapshot reflects every dimension
	s := m.Snapshot()
	assert.Equal(t, int64(3), s.TotalQueries)
	assert.Equal(t, int64(1), s.KindCounts[MatchExact])
	assert.Equal(t, int64(1), s.KindCounts[MatchSemantic])
	assert.Equal(t, int64(1), s.KindCounts[MatchNone])
	assert.Equal(t, []string{"quantum chromodynamics"}, s.ZeroResultQueries)
	assert.Equal(t, int64(2), s.LatencyDistribution[BucketP50])
	require.NotEmpty(t, s.TopTerms)
	assert.Equal(t, TermCount{Term: "recursion", Count: 2}, s.TopTerms[0])
	assert.InDelta(t, 33.33, s.ZeroResultPercentage(), 0.01)
}

func TestQueryMetrics_TopTerms_LRUEviction(t *testing.T) {
	m := NewQueryMetricsWithConfig(nil, QueryMetricsConfig{TopTermsCapacity: 2})
	defer m.Close()

	m.Record(QueryEvent{Query: "alpha", Kind: MatchNone})
	m.Record(QueryEvent{Query: "beta", Kind: MatchNone})
	m.Record(QueryEvent{Query: "gamma", Kind: MatchNone})

	var terms []string
	for _, tc := range m.Snapshot().TopTerms {
		terms = append(terms, tc.Term)
	}
	assert.ElementsMatch(t, []string{"beta", "gamma"}, terms)
}

func TestQueryMetrics_Concurrent(t *testing.T) {
	m := NewQueryMetrics(nil)
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Record(QueryEvent{Query: fmt.Sprintf("topic %d", i), Kind: MatchSemantic, ResultCount: 1})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(20), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_RecordAfterCloseIsIgnored(t *testing.T) {
	m := NewQueryMetrics(nil)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	m.Record(QueryEvent{Query: "late", Kind: MatchNone})

	assert.Equal(t, int64(0), m.Snapshot().TotalQueries)
}

func TestQueryMetrics_FlushWritesDeltas(t *testing.T) {
	// Given: a collector backed by SQLite, flushed twice
	store := openTestStore(t)
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{})

	m.Record(QueryEvent{Query: "graphs", Kind: MatchExact, ResultCount: 2, Latency: time.Millisecond})
	require.NoError(t, m.Flush())
	m.Record(QueryEvent{Query: "graphs", Kind: MatchExact, ResultCount: 2, Latency: time.Millisecond})
	m.Record(QueryEvent{Query: "nothing here", Kind: MatchNone, ResultCount: 0, Latency: time.Millisecond})
	require.NoError(t, m.Close())

	// Then: persisted counts are not double-counted
	today := time.Now().Format("2006-01-02")
	kinds, err := store.GetKindCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), kinds[MatchExact])
	assert.Equal(t, int64(1), kinds[MatchNone])

	terms, err := store.GetTopTerms(1)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "graphs", Count: 2}}, terms)

	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"nothing here"}, zero)

	latencies, err := store.GetLatencyCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latencies[BucketP10])
}

func TestLoadHistory_ReadsPersistedAggregates(t *testing.T) {
	// Given: two sessions flushed into the same store
	store := openTestStore(t)
	for i := 0; i < 2; i++ {
		m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{})
		m.Record(QueryEvent{Query: "entropy", Kind: MatchSemantic, ResultCount: 1, Latency: time.Millisecond})
		m.Record(QueryEvent{Query: "unknown subject", Kind: MatchNone, Latency: time.Millisecond})
		require.NoError(t, m.Close())
	}

	// When: loading the history
	snap, err := LoadHistory(store, 7, 10)

	// Then: totals span both sessions
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.ZeroResultCount)
	assert.Equal(t, int64(2), snap.KindCounts[MatchSemantic])
	assert.Equal(t, 50.0, snap.ZeroResultPercentage())
	require.NotEmpty(t, snap.TopTerms)
	assert.Equal(t, "entropy", snap.TopTerms[0].Term)
	assert.Contains(t, snap.ZeroResultQueries, "unknown subject")
	assert.False(t, snap.Since.IsZero())
}

func TestLoadHistory_EmptyStore(t *testing.T) {
	snap, err := LoadHistory(openTestStore(t), 0, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.TotalQueries)
	assert.True(t, snap.Since.IsZero())
}
