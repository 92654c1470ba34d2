package telemetry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()
	store, err := OpenSQLiteMetricsStore(filepath.Join(t.TempDir(), "db", StoreFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteMetricsStore_KindCounts_Incremental(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveKindCounts("2026-01-06", map[MatchKind]int64{MatchExact: 2, MatchNone: 1}))
	require.NoError(t, store.SaveKindCounts("2026-01-06", map[MatchKind]int64{MatchExact: 3}))
	require.NoError(t, store.SaveKindCounts("2026-01-08", map[MatchKind]int64{MatchExact: 10}))

	counts, err := store.GetKindCounts("2026-01-06", "2026-01-07")
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[MatchExact])
	assert.Equal(t, int64(1), counts[MatchNone])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"sorting": 3, "graphs": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"graphs": 5}))
	require.NoError(t, store.UpsertTermCounts(nil))

	terms, err := store.GetTopTerms(5)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{"graphs", 6}, {"sorting", 3}}, terms)
}

func TestSQLiteMetricsStore_ZeroResultQueries_Bounded(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < maxZeroResultQueries+5; i++ {
		require.NoError(t, store.AddZeroResultQuery(fmt.Sprintf("q%d", i), time.Now()))
	}

	all, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, all, maxZeroResultQueries)
	assert.Equal(t, fmt.Sprintf("q%d", maxZeroResultQueries+4), all[0])
}

func TestSQLiteMetricsStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), StoreFileName)
	store, err := OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveLatencyCounts("2026-02-01", map[LatencyBucket]int64{BucketP100: 4}))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	counts, err := reopened.GetLatencyCounts("2026-02-01", "2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[BucketP100])
}

func TestPrometheusCollectors(t *testing.T) {
	before := testutil.ToFloat64(FilesProcessedTotal.WithLabelValues(OutcomeAdded))
	chunksBefore := testutil.ToFloat64(ChunksIndexedTotal)
	searchesBefore := testutil.ToFloat64(SearchesTotal.WithLabelValues(string(MatchSemantic)))

	ObserveFile(OutcomeAdded, 4)
	ObserveFile(OutcomeSkipped, 0)
	ObserveScan(2*time.Second, 42)
	NewQueryMetrics(nil).Record(QueryEvent{Query: "x", Kind: MatchSemantic, ResultCount: 1})

	assert.Equal(t, before+1, testutil.ToFloat64(FilesProcessedTotal.WithLabelValues(OutcomeAdded)))
	assert.Equal(t, chunksBefore+4, testutil.ToFloat64(ChunksIndexedTotal))
	assert.Equal(t, float64(42), testutil.ToFloat64(IndexEntries))
	assert.Equal(t, searchesBefore+1, testutil.ToFloat64(SearchesTotal.WithLabelValues(string(MatchSemantic))))
}
