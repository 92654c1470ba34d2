package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Aman-CERP/edumate/internal/ignore"
)

// Scanner discovers documents under a root directory.
type Scanner struct {
	extensions map[string]struct{}
	opts       Options
}

// New creates a Scanner for opts.
func New(opts Options) *Scanner {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{extensions: exts, opts: opts}
}

// Supports reports whether path has an accepted extension.
func (s *Scanner) Supports(path string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Scan walks the root and returns every accepted document, sorted by
// relative path so repeated scans process files in the same order.
// A missing root yields no files and no error.
func (s *Scanner) Scan(ctx context.Context) ([]FileInfo, error) {
	rootDir := s.opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if os.IsNotExist(err) {
		slog.Warn("documents directory does not exist", slog.String("path", absRoot))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", absRoot)
	}

	var files []FileInfo
	ignored := ignore.New()
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			slog.Debug("skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		if relPath == "." {
			s.loadIgnoreFile(ignored, path, "")
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(relPath) || ignored.Match(relPath, true) {
				return filepath.SkipDir
			}
			s.loadIgnoreFile(ignored, path, relPath)
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !s.opts.FollowSymlinks {
			return nil
		}
		if !s.Supports(relPath) || s.shouldExcludeFile(relPath) || ignored.Match(relPath, false) {
			return nil
		}

		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return nil
		}
		if fi.Size() > s.opts.MaxFileSize {
			slog.Warn("skipping oversized document",
				slog.String("path", relPath),
				slog.Int64("size", fi.Size()))
			return nil
		}

		files = append(files, FileInfo{
			Path:    relPath,
			AbsPath: path,
			Ext:     strings.ToLower(filepath.Ext(relPath)),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// loadIgnoreFile adds the rules of dir's ignore file, if any, scoped to
// relDir. Rules only reach entries walked after their directory.
func (s *Scanner) loadIgnoreFile(m *ignore.Matcher, dir, relDir string) {
	if s.opts.NoIgnoreFiles {
		return
	}
	path := filepath.Join(dir, ignore.FileName)
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := m.AddFile(path, relDir); err != nil {
		slog.Warn("skipping unreadable ignore file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// shouldExcludeDir checks if a directory should be skipped entirely.
func (s *Scanner) shouldExcludeDir(relPath string) bool {
	for _, pattern := range defaultExcludeDirs {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludePatterns {
		if matchDirPattern(relPath, pattern) {
			return true
		}
	}
	return false
}

// shouldExcludeFile checks if a file should be skipped.
func (s *Scanner) shouldExcludeFile(relPath string) bool {
	baseName := filepath.Base(relPath)
	for _, pattern := range defaultExcludeFiles {
		if matchFilePattern(baseName, relPath, pattern) {
			return true
		}
	}
	for _, pattern := range s.opts.ExcludePatterns {
		if matchFilePattern(baseName, relPath, pattern) {
			return true
		}
	}
	return false
}

// matchDirPattern checks if a directory path matches a pattern.
func matchDirPattern(relPath, pattern string) bool {
	pattern = filepath.FromSlash(pattern)
	sep := string(filepath.Separator)

	// **/name/** matches a segment anywhere
	if strings.HasPrefix(pattern, "**"+sep) {
		name := strings.TrimSuffix(strings.TrimPrefix(pattern, "**"+sep), sep+"**")
		for _, part := range strings.Split(relPath, sep) {
			if part == name {
				return true
			}
		}
		return false
	}

	// dir/** matches the directory itself and everything below it
	prefix := strings.TrimSuffix(pattern, sep+"**")
	return relPath == prefix || strings.HasPrefix(relPath, prefix+sep)
}

// matchFilePattern checks if a file matches a pattern.
func matchFilePattern(baseName, relPath, pattern string) bool {
	pattern = filepath.FromSlash(pattern)
	sep := string(filepath.Separator)

	// Directory patterns apply to the file's parent.
	if strings.HasSuffix(pattern, sep+"**") {
		return matchDirPattern(filepath.Dir(relPath), pattern)
	}

	// **/glob matches the base name at any depth.
	if strings.HasPrefix(pattern, "**"+sep) {
		matched, err := filepath.Match(strings.TrimPrefix(pattern, "**"+sep), baseName)
		return err == nil && matched
	}

	// Patterns with a directory part match against the relative path.
	if strings.Contains(pattern, sep) {
		matched, err := filepath.Match(pattern, relPath)
		return err == nil && matched
	}

	matched, err := filepath.Match(pattern, baseName)
	return err == nil && matched
}
