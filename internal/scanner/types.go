// Package scanner discovers ingestible documents under a documents root,
// honouring the configured extensions, exclusion patterns and
// .edumateignore files.
package scanner

import (
	"time"
)

// FileInfo describes one discovered document.
type FileInfo struct {
	Path    string    // Relative to the documents root
	AbsPath string    // Absolute path
	Ext     string    // Lowercased extension including the dot
	Size    int64     // Bytes
	ModTime time.Time // Last modification time
}

// Options configures discovery.
type Options struct {
	// RootDir is the documents root to walk.
	RootDir string

	// Extensions lists the accepted file extensions (".pdf", ".md", ...).
	// Matching is case-insensitive. Empty accepts nothing.
	Extensions []string

	// ExcludePatterns lists directory or file patterns to skip.
	ExcludePatterns []string

	// MaxFileSize skips larger files (0 = DefaultMaxFileSize).
	MaxFileSize int64

	// FollowSymlinks includes symlinked files (default: false).
	FollowSymlinks bool

	// NoIgnoreFiles disables .edumateignore handling.
	NoIgnoreFiles bool
}

// DefaultMaxFileSize is the default maximum document size (100MB).
const DefaultMaxFileSize = 100 * 1024 * 1024

// defaultExcludeDirs are never descended into.
var defaultExcludeDirs = []string{
	"**/.git/**",
	"**/.edumate/**",
	"**/__MACOSX/**",
}

// defaultExcludeFiles are editor and OS droppings that share document extensions.
var defaultExcludeFiles = []string{
	".DS_Store",
	"~$*",
	".~lock*",
}
