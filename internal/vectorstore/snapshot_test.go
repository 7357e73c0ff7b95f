package vectorstore

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nextraction/internal/domain"
)

func TestWriteSnapshotRejectsUnalignedInput(t *testing.T) {
	err := WriteSnapshot(filepath.Join(t.TempDir(), "vs"), Snapshot{
		Dimension: 2,
		Vectors:   [][]float32{{1, 2}},
		Chunks:    []string{"a", "b"},
		Metadata:  []domain.Metadata{{}},
	})
	assert.ErrorIs(t, err, domain.ErrArityMismatch)
}

func TestReadSnapshotFillsMissingMetadata(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vs")
	require.NoError(t, WriteSnapshot(base, Snapshot{
		Dimension: 2,
		Vectors:   [][]float32{{1, 2}, {3, 4}},
		Chunks:    []string{"a", "b"},
		Metadata:  []domain.Metadata{{}, {}},
	}))

	// Older sidecars carried no metadata at all.
	_, dataPath := Paths(base)
	f, err := os.Create(dataPath)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(f).Encode(sidecar{Chunks: []string{"a", "b"}, Dimension: 2}))
	require.NoError(t, f.Close())

	snap, found, err := ReadSnapshot(base)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []domain.Metadata{{}, {}}, snap.Metadata)
	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, snap.Vectors)
}

func TestReadSnapshotDimensionDisagreement(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vs")
	require.NoError(t, WriteSnapshot(base, Snapshot{
		Dimension: 2,
		Vectors:   [][]float32{{1, 2}},
		Chunks:    []string{"a"},
		Metadata:  []domain.Metadata{{}},
	}))
	_, dataPath := Paths(base)
	f, err := os.Create(dataPath)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(f).Encode(sidecar{Chunks: []string{"a"}, Dimension: 3}))
	require.NoError(t, f.Close())

	_, _, err = ReadSnapshot(base)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestReadSnapshotBadMagic(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vs")
	vectorPath, dataPath := Paths(base)
	require.NoError(t, os.WriteFile(vectorPath, []byte("not a vector file at all"), 0o644))
	require.NoError(t, os.WriteFile(dataPath, []byte("junk"), 0o644))
	_, found, err := ReadSnapshot(base)
	assert.False(t, found)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestReadSnapshotRejectsOversizedCount(t *testing.T) {
	for _, tc := range []struct {
		name  string
		dim   uint32
		count uint64
	}{
		{"count wraps product", 1, 1 << 62},
		{"count times dim wraps", 1 << 31, 1 << 33},
		{"one vector beyond file", 4, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "vs")
			vectorPath, dataPath := Paths(base)

			var buf bytes.Buffer
			buf.Write(vectorMagic[:])
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, vectorVersion))
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tc.dim))
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, tc.count))
			require.NoError(t, os.WriteFile(vectorPath, buf.Bytes(), 0o644))
			require.NoError(t, os.WriteFile(dataPath, []byte("junk"), 0o644))

			var (
				found bool
				err   error
			)
			require.NotPanics(t, func() { _, found, err = ReadSnapshot(base) })
			assert.False(t, found)
			assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
		})
	}
}
