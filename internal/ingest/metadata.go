package ingest

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
	"github.com/Aman-CERP/edumate/internal/store"
)

// DefaultGroup names the course or chapter of files without one.
const DefaultGroup = "General"

// Fingerprint returns the hex SHA-256 of the file's bytes.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eduerrors.ExtractionError(path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eduerrors.ExtractionError(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileID returns the identifier shared by every chunk of path: the first
// eight hex characters of the MD5 of the path string.
func FileID(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:8]
}

// DeriveMetadata builds the per-file metadata for path from its location
// below root. Each directory between root and the file becomes a topic
// (underscores read as spaces); the first is the course and the second the
// chapter. Files outside root, or without enough directories, fall back
// to DefaultGroup. Chunk fields are left zero.
func DeriveMetadata(root, path string) store.Metadata {
	m := store.Metadata{
		ID:       FileID(path),
		FilePath: path,
		Title:    strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Course:   DefaultGroup,
		Chapter:  DefaultGroup,
		Topics:   []string{},
	}

	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return m
	}

	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg == "" {
			continue
		}
		m.Topics = append(m.Topics, strings.ReplaceAll(seg, "_", " "))
	}
	if len(m.Topics) > 0 {
		m.Course = m.Topics[0]
	}
	if len(m.Topics) > 1 {
		m.Chapter = m.Topics[1]
	}
	return m
}
