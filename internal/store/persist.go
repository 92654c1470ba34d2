package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Artifact file names inside the database directory.
const (
	IndexFileName     = "index"
	MetadataFileName  = "metadata"
	DocumentsFileName = "documents"
)

// indexMagic opens every index artifact.
var indexMagic = [4]byte{'E', 'D', 'V', 'X'}

const indexFormatVersion uint16 = 1

// indexHeader is followed by count*dims little-endian float32 values.
type indexHeader struct {
	Magic   [4]byte
	Version uint16
	_       uint16
	Dims    uint32
	Count   uint64
}

const indexHeaderSize = 4 + 2 + 2 + 4 + 8

var errDimensionMismatch = errors.New("dimension mismatch")

// encodeVectors serializes the flat index.
func encodeVectors(w io.Writer, dims int, vectors [][]float32) error {
	bw := bufio.NewWriter(w)
	hdr := indexHeader{
		Magic:   indexMagic,
		Version: indexFormatVersion,
		Dims:    uint32(dims),
		Count:   uint64(len(vectors)),
	}
	if err := binary.Write(bw, binary.LittleEndian, hdr); err != nil {
		return err
	}

	buf := make([]byte, 4*dims)
	for _, v := range vectors {
		for j, x := range v {
			binary.LittleEndian.PutUint32(buf[j*4:], math.Float32bits(x))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// decodeVectors reads an index artifact of exactly size bytes. A dims
// value other than wantDims is reported as errDimensionMismatch.
func decodeVectors(r io.Reader, size int64, wantDims int) ([][]float32, error) {
	br := bufio.NewReader(r)
	var hdr indexHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != indexMagic {
		return nil, fmt.Errorf("bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != indexFormatVersion {
		return nil, fmt.Errorf("unsupported index version %d", hdr.Version)
	}
	if int(hdr.Dims) != wantDims {
		return nil, fmt.Errorf("%w: store has %d, embedder has %d", errDimensionMismatch, hdr.Dims, wantDims)
	}
	if want := indexHeaderSize + int64(hdr.Count)*int64(hdr.Dims)*4; want != size {
		return nil, fmt.Errorf("index is %d bytes, header implies %d", size, want)
	}

	vectors := make([][]float32, hdr.Count)
	buf := make([]byte, 4*hdr.Dims)
	for i := range vectors {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		v := make([]float32, hdr.Dims)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		vectors[i] = v
	}
	return vectors, nil
}

func gobBytes(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return gob.NewDecoder(bufio.NewReader(f)).Decode(v)
}

// writeTemp writes data next to path and returns the temp file name.
func writeTemp(path string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}
	tmp := f.Name()

	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// renameFile is os.Rename; tests replace it to fail a commit midway.
var renameFile = os.Rename

// backupSuffix marks the previous generation of an artifact during a commit.
const backupSuffix = ".bak"

// commitArtifacts moves temps[i] to dir/names[i] for every artifact. The
// current artifacts are first moved aside; if any step fails, the new
// files already placed are removed and the old ones restored, so the
// artifacts on disk always belong to one save.
func commitArtifacts(dir string, names, temps []string) error {
	var backedUp []string
	restore := func() {
		for _, name := range backedUp {
			_ = renameFile(filepath.Join(dir, name+backupSuffix), filepath.Join(dir, name))
		}
	}

	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := renameFile(path, path+backupSuffix); err != nil {
			restore()
			return err
		}
		backedUp = append(backedUp, name)
	}

	for i, name := range names {
		if err := renameFile(temps[i], filepath.Join(dir, name)); err != nil {
			for _, placed := range names[:i] {
				_ = os.Remove(filepath.Join(dir, placed))
			}
			restore()
			return err
		}
	}

	for _, name := range backedUp {
		_ = os.Remove(filepath.Join(dir, name+backupSuffix))
	}
	return nil
}

// writeFileAtomic replaces path with data via temp file + rename.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := writeTemp(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
