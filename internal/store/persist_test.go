package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

func TestVectorIndex_Save_FailedCommitKeepsPreviousGeneration(t *testing.T) {
	// Given: a saved index with one entry
	emb := newFakeEmbedder(3).set("first", 1, 0, 0).set("second", 0, 1, 0)
	dir := t.TempDir()
	idx := NewVectorIndex(emb, Options{Dir: dir})
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "first", meta("a", 0, 1)))
	require.NoError(t, idx.Save())

	// When: the next save fails while moving the metadata into place
	require.NoError(t, idx.Add(ctx, "second", meta("b", 0, 1)))
	target := filepath.Join(dir, MetadataFileName)
	renameFile = func(oldpath, newpath string) error {
		if newpath == target && !strings.HasSuffix(oldpath, backupSuffix) {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = os.Rename })
	err := idx.Save()

	// Then: the save reports a storage error
	require.Error(t, err)
	assert.ErrorIs(t, err, eduerrors.ErrStorage)

	// And: the store still loads as the first generation
	loaded := NewVectorIndex(emb, Options{Dir: dir})
	require.NoError(t, loaded.Load())
	assert.Equal(t, 1, loaded.Len())
	var texts []string
	loaded.Each(func(text string, _ Metadata) bool { texts = append(texts, text); return true })
	assert.Equal(t, []string{"first"}, texts)

	// And: no temp or backup files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
		assert.NotContains(t, e.Name(), backupSuffix)
	}
}

func TestVectorIndex_Save_FailedFirstCommitLeavesNoStore(t *testing.T) {
	// Given: an index never saved before
	emb := newFakeEmbedder(3).set("first", 1, 0, 0)
	dir := t.TempDir()
	idx := NewVectorIndex(emb, Options{Dir: dir})
	require.NoError(t, idx.Add(context.Background(), "first", meta("a", 0, 1)))

	// When: the last artifact cannot be moved into place
	target := filepath.Join(dir, DocumentsFileName)
	renameFile = func(oldpath, newpath string) error {
		if newpath == target {
			return errors.New("disk full")
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { renameFile = os.Rename })
	require.Error(t, idx.Save())

	// Then: the artifacts placed earlier are removed and the store reads as empty
	_, err := os.Stat(filepath.Join(dir, IndexFileName))
	assert.True(t, os.IsNotExist(err))
	loaded := NewVectorIndex(emb, Options{Dir: dir})
	require.NoError(t, loaded.Load())
	assert.Equal(t, 0, loaded.Len())
}

func TestVectorIndex_Save_ReplacesPreviousGeneration(t *testing.T) {
	// Given: an index saved twice
	emb := newFakeEmbedder(3).set("first", 1, 0, 0).set("second", 0, 1, 0)
	dir := t.TempDir()
	idx := NewVectorIndex(emb, Options{Dir: dir})
	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, "first", meta("a", 0, 1)))
	require.NoError(t, idx.Save())
	require.NoError(t, idx.Add(ctx, "second", meta("b", 0, 1)))

	// When: saving again
	require.NoError(t, idx.Save())

	// Then: the new generation loads and the backups are gone
	loaded := NewVectorIndex(emb, Options{Dir: dir})
	require.NoError(t, loaded.Load())
	assert.Equal(t, 2, loaded.Len())
	for _, name := range []string{IndexFileName, MetadataFileName, DocumentsFileName} {
		_, err := os.Stat(filepath.Join(dir, name+backupSuffix))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestVectorIndex_Each_PassesCopies(t *testing.T) {
	// Given: an entry with topics
	idx := newTestIndex(t, newFakeEmbedder(3), BackendFlat)
	m := meta("a", 0, 1)
	m.Topics = []string{"Physics"}
	require.NoError(t, idx.Add(context.Background(), "alpha", m))

	// When: the callback rewrites the topics it receives
	idx.Each(func(_ string, got Metadata) bool { got.Topics[0] = "Chemistry"; return true })

	// Then: the stored topics are unchanged
	idx.Each(func(_ string, got Metadata) bool {
		assert.Equal(t, []string{"Physics"}, got.Topics)
		return true
	})
}
