package store

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// RegistryFileName is the processed-file table inside the database directory.
const RegistryFileName = "processed_files"

// Registry maps absolute file paths to the content fingerprint they had
// when last ingested. It is persisted as one "path|fingerprint" line per file.
type Registry struct {
	path string

	mu      sync.RWMutex
	entries map[string]string
}

// NewRegistry creates an empty registry persisted under dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		path:    filepath.Join(dir, RegistryFileName),
		entries: make(map[string]string),
	}
}

// Get returns the stored fingerprint for path.
func (r *Registry) Get(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fp, ok := r.entries[path]
	return fp, ok
}

// NeedsProcessing reports whether path is new or its fingerprint changed.
func (r *Registry) NeedsProcessing(path, fingerprint string) bool {
	stored, ok := r.Get(path)
	return !ok || stored != fingerprint
}

// Set records the fingerprint for path.
func (r *Registry) Set(path, fingerprint string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[path] = fingerprint
}

// Remove forgets path.
func (r *Registry) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, path)
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.entries))
	for p := range r.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Load replaces the in-memory table with the persisted one. A missing file
// is an empty registry. Malformed lines are skipped with a warning, which
// only makes their files look new on the next scan.
func (r *Registry) Load() error {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		r.mu.Lock()
		r.entries = make(map[string]string)
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return eduerrors.StorageError("failed to open processed file registry", err)
	}
	defer func() { _ = f.Close() }()

	entries := make(map[string]string)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		// Paths may contain '|'; fingerprints never do.
		sep := strings.LastIndexByte(line, '|')
		if sep <= 0 || sep == len(line)-1 {
			slog.Warn("skipping malformed registry line",
				slog.String("file", r.path),
				slog.Int("line", lineNo))
			continue
		}
		entries[line[:sep]] = line[sep+1:]
	}
	if err := scanner.Err(); err != nil {
		return eduerrors.StorageError("failed to read processed file registry", err)
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
	return nil
}

// Save writes the table atomically (temp file + rename).
func (r *Registry) Save() error {
	var b strings.Builder
	for _, p := range r.Paths() {
		fp, _ := r.Get(p)
		fmt.Fprintf(&b, "%s|%s\n", p, fp)
	}

	if err := writeFileAtomic(r.path, []byte(b.String())); err != nil {
		return eduerrors.StorageError("failed to save processed file registry", err)
	}
	return nil
}

// Clear empties the table and deletes the persisted file.
func (r *Registry) Clear() error {
	r.mu.Lock()
	r.entries = make(map[string]string)
	r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return eduerrors.StorageError("failed to delete processed file registry", err)
	}
	return nil
}

// DiskBytes returns the size of the persisted file, 0 if absent.
func (r *Registry) DiskBytes() int64 {
	info, err := os.Stat(r.path)
	if err != nil {
		return 0
	}
	return info.Size()
}
