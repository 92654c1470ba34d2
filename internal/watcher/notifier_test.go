package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNotifier(t *testing.T, root string, exts ...string) *Notifier {
	t.Helper()
	n, err := NewNotifier(Options{DebounceWindow: 50 * time.Millisecond, Extensions: exts})
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background(), root))
	t.Cleanup(func() { _ = n.Stop() })
	return n
}

func TestNotifier_DocumentWrite_Signals(t *testing.T) {
	// Given: a notifier on an empty tree
	root := t.TempDir()
	n := startNotifier(t, root, ".md")

	// When: a document is written
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("hello"), 0o644))

	// Then: a signal arrives
	select {
	case <-n.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change signal")
	}
}

func TestNotifier_NewSubdirectory_IsWatched(t *testing.T) {
	// Given: a notifier on an empty tree
	root := t.TempDir()
	n := startNotifier(t, root, ".txt")

	// When: a course directory is created and drained, then a file lands in it
	dir := filepath.Join(root, "Physics")
	require.NoError(t, os.Mkdir(dir, 0o755))
	select {
	case <-n.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for directory signal")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "waves.txt"), []byte("waves"), 0o644))

	// Then: the nested write also signals
	select {
	case <-n.C():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for nested change signal")
	}
}

func TestNotifier_UnsupportedExtension_Ignored(t *testing.T) {
	// Given: a notifier limited to markdown
	root := t.TempDir()
	n := startNotifier(t, root, ".md")

	// When: an unrelated file is written
	require.NoError(t, os.WriteFile(filepath.Join(root, "image.png"), []byte{0x89}, 0o644))

	// Then: no signal arrives
	select {
	case <-n.C():
		t.Fatal("unexpected signal for unsupported file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNotifier_HiddenDirectory_Ignored(t *testing.T) {
	// Given: a tree with a hidden state directory
	root := t.TempDir()
	hidden := filepath.Join(root, ".edumate")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	n := startNotifier(t, root)

	// When: the state directory changes
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "index"), []byte("x"), 0o644))

	// Then: no signal arrives
	select {
	case <-n.C():
		t.Fatal("unexpected signal for hidden directory")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestNotifier_Stop_Idempotent(t *testing.T) {
	// Given: a started notifier
	n, err := NewNotifier(DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, n.Start(context.Background(), t.TempDir()))

	// When/Then: stopping twice is safe
	assert.NoError(t, n.Stop())
	assert.NoError(t, n.Stop())
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".git"))
	assert.True(t, isHidden(filepath.Join("course", ".cache", "x.md")))
	assert.False(t, isHidden(filepath.Join("course", "notes.md")))
}
