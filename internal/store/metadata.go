package store

import (
	"fmt"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// Metadata describes one stored chunk. ID is derived from the owning file's
// path, so every chunk of a file shares it.
type Metadata struct {
	ID          string   `json:"id"`
	FilePath    string   `json:"file_path"`
	Title       string   `json:"title"`
	Course      string   `json:"course"`
	Chapter     string   `json:"chapter"`
	Topics      []string `json:"topics"`
	ChunkID     int      `json:"chunk_id"`
	TotalChunks int      `json:"total_chunks"`
}

// Validate reports a metadata record that cannot be stored.
func (m Metadata) Validate() error {
	switch {
	case m.ID == "":
		return eduerrors.New(eduerrors.ErrCodeInvalidMetadata, "metadata id is empty", nil)
	case m.FilePath == "":
		return eduerrors.New(eduerrors.ErrCodeInvalidMetadata, "metadata file path is empty", nil).
			WithDetail("id", m.ID)
	case m.TotalChunks <= 0 || m.ChunkID < 0 || m.ChunkID >= m.TotalChunks:
		return eduerrors.New(eduerrors.ErrCodeInvalidMetadata,
			fmt.Sprintf("chunk %d out of range for %d chunks", m.ChunkID, m.TotalChunks), nil).
			WithDetail("path", m.FilePath)
	}
	return nil
}

// Result is one similarity search hit.
type Result struct {
	Text       string
	Metadata   Metadata
	Similarity float32
}

// Stats summarises the index without side effects.
type Stats struct {
	Count      int
	Dimensions int
	Backend    Backend
	// ApproxSize is the estimated in-memory footprint in bytes.
	ApproxSize int64
	// DiskBytes is the size of the persisted artifacts in bytes.
	DiskBytes int64
}
