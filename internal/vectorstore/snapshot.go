// Package vectorstore holds the on-disk snapshot format shared by index implementations.
//
// A snapshot at base path P is two files: P.index holds the raw float32 vectors
// behind a small header, P.data holds a gob bundle of passage texts, metadata
// and dimension, positionally aligned with the vectors.
package vectorstore

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nextraction/internal/domain"
)

const (
	// VectorExt is appended to the base path for the vector data file.
	VectorExt = ".index"
	// DataExt is appended to the base path for the sidecar data file.
	DataExt = ".data"

	vectorVersion uint32 = 1
	headerSize           = 4 + 4 + 4 + 8
)

var vectorMagic = [4]byte{'N', 'X', 'V', 'F'}

func init() {
	gob.Register(domain.Metadata{})
	gob.Register(map[string]any{})
}

// Snapshot is the full durable content of an index.
type Snapshot struct {
	Dimension int
	Vectors   [][]float32
	Chunks    []string
	Metadata  []domain.Metadata
}

type sidecar struct {
	Chunks    []string
	Metadata  []domain.Metadata
	Dimension int
}

// Paths returns the vector and sidecar file paths for a base path.
func Paths(base string) (vectorPath, dataPath string) {
	return base + VectorExt, base + DataExt
}

// WriteSnapshot writes both snapshot files, creating the parent directory.
// Each file is written to a temporary name and renamed into place.
func WriteSnapshot(base string, s Snapshot) error {
	if len(s.Vectors) != len(s.Chunks) || len(s.Vectors) != len(s.Metadata) {
		return fmt.Errorf("%w: %d vectors, %d chunks, %d metadata", domain.ErrArityMismatch, len(s.Vectors), len(s.Chunks), len(s.Metadata))
	}
	vectorPath, dataPath := Paths(base)
	if err := os.MkdirAll(filepath.Dir(vectorPath), 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}
	if err := writeAtomic(vectorPath, func(w io.Writer) error { return encodeVectors(w, s.Dimension, s.Vectors) }); err != nil {
		return fmt.Errorf("write vector file: %w", err)
	}
	side := sidecar{Chunks: s.Chunks, Metadata: s.Metadata, Dimension: s.Dimension}
	if err := writeAtomic(dataPath, func(w io.Writer) error { return gob.NewEncoder(w).Encode(side) }); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot. found is false when neither file exists.
// Any other inconsistency is reported as domain.ErrIndexCorrupted.
func ReadSnapshot(base string) (s Snapshot, found bool, err error) {
	vectorPath, dataPath := Paths(base)
	vecExists, err := exists(vectorPath)
	if err != nil {
		return Snapshot{}, false, err
	}
	dataExists, err := exists(dataPath)
	if err != nil {
		return Snapshot{}, false, err
	}
	switch {
	case !vecExists && !dataExists:
		return Snapshot{}, false, nil
	case !vecExists:
		return Snapshot{}, false, fmt.Errorf("%w: %s present without %s", domain.ErrIndexCorrupted, dataPath, vectorPath)
	case !dataExists:
		return Snapshot{}, false, fmt.Errorf("%w: %s present without %s", domain.ErrIndexCorrupted, vectorPath, dataPath)
	}

	dim, vectors, err := readVectors(vectorPath)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %s: %v", domain.ErrIndexCorrupted, vectorPath, err)
	}
	side, err := readSidecar(dataPath)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %s: %v", domain.ErrIndexCorrupted, dataPath, err)
	}

	if side.Dimension != dim {
		return Snapshot{}, false, fmt.Errorf("%w: vector file dimension %d, data file dimension %d", domain.ErrIndexCorrupted, dim, side.Dimension)
	}
	if len(side.Chunks) != len(vectors) {
		return Snapshot{}, false, fmt.Errorf("%w: %d vectors but %d chunks", domain.ErrIndexCorrupted, len(vectors), len(side.Chunks))
	}
	// Snapshots written without metadata get empty maps.
	if len(side.Metadata) == 0 {
		side.Metadata = make([]domain.Metadata, len(side.Chunks))
	}
	if len(side.Metadata) != len(side.Chunks) {
		return Snapshot{}, false, fmt.Errorf("%w: %d chunks but %d metadata entries", domain.ErrIndexCorrupted, len(side.Chunks), len(side.Metadata))
	}
	for i, m := range side.Metadata {
		if m == nil {
			side.Metadata[i] = domain.Metadata{}
		}
	}

	return Snapshot{Dimension: dim, Vectors: vectors, Chunks: side.Chunks, Metadata: side.Metadata}, true, nil
}

func encodeVectors(w io.Writer, dim int, vectors [][]float32) error {
	if dim <= 0 {
		return fmt.Errorf("invalid dimension %d", dim)
	}
	if _, err := w.Write(vectorMagic[:]); err != nil {
		return err
	}
	header := []any{vectorVersion, uint32(dim), uint64(len(vectors))}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return err
		}
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has length %d, want %d", domain.ErrDimensionMismatch, i, len(v), dim)
		}
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(path string) (int, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return 0, nil, err
	}
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}
	if magic != vectorMagic {
		return 0, nil, errors.New("bad magic")
	}
	var version, dim uint32
	var count uint64
	for _, p := range []any{&version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return 0, nil, fmt.Errorf("read header: %w", err)
		}
	}
	if version != vectorVersion {
		return 0, nil, fmt.Errorf("unsupported version %d", version)
	}
	if dim == 0 {
		return 0, nil, errors.New("zero dimension")
	}
	// Compare by division first so a forged count cannot overflow the product.
	payload := info.Size() - headerSize
	if payload < 0 || count > uint64(payload/4/int64(dim)) ||
		int64(count)*int64(dim)*4 != payload {
		return 0, nil, fmt.Errorf("size %d does not match %d vectors of dimension %d", info.Size(), count, dim)
	}

	flat := make([]float32, int(count)*int(dim))
	if err := binary.Read(r, binary.LittleEndian, flat); err != nil {
		return 0, nil, fmt.Errorf("read vectors: %w", err)
	}
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = flat[i*int(dim) : (i+1)*int(dim) : (i+1)*int(dim)]
	}
	return int(dim), vectors, nil
}

func readSidecar(path string) (sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return sidecar{}, err
	}
	defer f.Close()
	var side sidecar
	if err := gob.NewDecoder(bufio.NewReader(f)).Decode(&side); err != nil {
		return sidecar{}, err
	}
	return side, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
