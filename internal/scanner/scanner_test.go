package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("content of "+f), 0o644))
	}
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = filepath.ToSlash(f.Path)
	}
	return out
}

func TestScanner_Scan_FiltersAndSorts(t *testing.T) {
	// Given: a documents tree with mixed extensions
	root := t.TempDir()
	writeFiles(t, root,
		"CS101/Week_1/recursion.md",
		"CS101/Week_1/notes.TXT",
		"CS101/image.png",
		"Algebra/intro.pdf",
		"readme.txt",
		".git/config.txt",
		"CS101/~$draft.docx",
	)

	// When: scanning for documents
	s := New(Options{RootDir: root, Extensions: []string{".md", ".txt", "pdf", ".docx"}})
	files, err := s.Scan(context.Background())

	// Then: only accepted documents, in sorted order
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Algebra/intro.pdf",
		"CS101/Week_1/notes.TXT",
		"CS101/Week_1/recursion.md",
		"readme.txt",
	}, relPaths(files))
	assert.Equal(t, ".txt", files[1].Ext)
	assert.True(t, filepath.IsAbs(files[0].AbsPath))
}

func TestScanner_Scan_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"archive/old.md",
		"drafts/wip.md",
		"course/drafts/wip.md",
		"course/keep.md",
		"course/scratch.tmp.md",
	)

	s := New(Options{
		RootDir:         root,
		Extensions:      []string{".md"},
		ExcludePatterns: []string{"archive/**", "**/drafts/**", "*.tmp.md"},
	})
	files, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"course/keep.md"}, relPaths(files))
}

func TestScanner_Scan_MissingRoot(t *testing.T) {
	s := New(Options{RootDir: filepath.Join(t.TempDir(), "absent"), Extensions: []string{".md"}})

	files, err := s.Scan(context.Background())

	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestScanner_Scan_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.md")

	s := New(Options{RootDir: filepath.Join(root, "a.md"), Extensions: []string{".md"}})
	_, err := s.Scan(context.Background())

	assert.Error(t, err)
}

func TestScanner_Scan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "small.md")
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.md"), make([]byte, 64), 0o644))

	s := New(Options{RootDir: root, Extensions: []string{".md"}, MaxFileSize: 32})
	files, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"small.md"}, relPaths(files))
}

func TestScanner_Scan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.md")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{RootDir: root, Extensions: []string{".md"}}).Scan(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Supports(t *testing.T) {
	s := New(Options{Extensions: []string{".PDF", "md", " "}})

	assert.True(t, s.Supports("/x/file.pdf"))
	assert.True(t, s.Supports("notes.MD"))
	assert.False(t, s.Supports("notes.txt"))
	assert.False(t, s.Supports("noext"))
}

func TestMatchFilePattern(t *testing.T) {
	tests := []struct {
		rel     string
		pattern string
		want    bool
	}{
		{"a/b/c.md", "*.md", true},
		{"a/b/c.md", "c.*", true},
		{"a/b/c.md", "a/**", true},
		{"a/b/c.md", "b/**", false},
		{"a/b/c.md", "**/b/**", true},
		{"a/b/c.md", "**/*.md", true},
		{"a/b/c.md", "a/b/*.md", true},
		{"a/b/c.md", "a/*.md", false},
		{"a/b/c.md", "d.md", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel+" "+tt.pattern, func(t *testing.T) {
			rel := filepath.FromSlash(tt.rel)
			assert.Equal(t, tt.want, matchFilePattern(filepath.Base(rel), rel, tt.pattern))
		})
	}
}

func TestScanner_Scan_IgnoreFiles(t *testing.T) {
	// Given: a root ignore file and a nested one scoped to a course
	root := t.TempDir()
	writeFiles(t, root,
		"Physics/Mechanics/newton.md",
		"Physics/answers/week1.md",
		"Physics/scratch.txt",
		"Biology/scratch.txt",
		"Biology/Cells/draft.docx",
		"Biology/Cells/final.docx",
	)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".edumateignore"),
		[]byte("answers/\n*.docx\n!final.docx\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Physics", ".edumateignore"),
		[]byte("*.txt\n"), 0o644))

	s := New(Options{RootDir: root, Extensions: []string{".md", ".txt", ".docx"}})

	// When: scanning
	files, err := s.Scan(context.Background())

	// Then: ignored paths are skipped, negations and scopes respected
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Biology/Cells/final.docx",
		"Biology/scratch.txt",
		"Physics/Mechanics/newton.md",
	}, relPaths(files))
}

func TestScanner_Scan_IgnoreFilesDisabled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "Art/sketch.md")
	require.NoError(t, os.WriteFile(filepath.Join(root, ".edumateignore"), []byte("*.md\n"), 0o644))

	s := New(Options{RootDir: root, Extensions: []string{".md"}, NoIgnoreFiles: true})
	files, err := s.Scan(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Art/sketch.md"}, relPaths(files))
}
