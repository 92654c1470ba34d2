// Package extract turns document files into plain text. Each supported
// extension has an Extractor; Registry dispatches on the file extension.
package extract

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// Extractor reads the text content of one document format.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(path string) (string, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (string, error) {
	return f(path)
}

// Registry maps lowercased extensions to extractors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// Default returns a registry with every built-in format.
func Default() *Registry {
	r := NewRegistry()
	r.Register(".txt", PlainText{})
	r.Register(".md", PlainText{})
	r.Register(".markdown", PlainText{})
	r.Register(".docx", DOCX{})
	r.Register(".pdf", PDF{})
	return r
}

// Register sets the extractor for ext, replacing any previous one.
func (r *Registry) Register(ext string, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[normalizeExt(ext)] = e
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.extractors))
	for e := range r.extractors {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (r *Registry) Supports(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extract returns the trimmed text of path. An unknown extension is an
// unsupported-format error; a file with no usable text is an extraction
// error.
func (r *Registry) Extract(path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	r.mu.RLock()
	e, ok := r.extractors[ext]
	r.mu.RUnlock()
	if !ok {
		return "", eduerrors.UnsupportedFormatError(path, ext)
	}

	text, err := e.Extract(path)
	if err != nil {
		return "", eduerrors.ExtractionError(path, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", eduerrors.ExtractionError(path, errNoText)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
