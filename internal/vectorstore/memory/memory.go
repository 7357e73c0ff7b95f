package memory

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"nextraction/internal/domain"
	"nextraction/internal/vectorstore"
)

type entry struct {
	vector   []float32
	text     string
	metadata domain.Metadata
}

// Index is an in-memory exact nearest-neighbour store using squared L2 distance.
// Entries are append-only and identified by their insertion ordinal.
// Writes are serialized; searches observe the state before or after a write, never between.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry

	// persistMu keeps concurrent Persist calls from interleaving the two snapshot files.
	persistMu sync.Mutex
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimension int) *Index {
	return &Index{dimension: dimension}
}

// Dimension returns the configured vector length.
func (s *Index) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// Len returns the number of stored entries.
func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Add appends one entry and returns its ordinal.
func (s *Index) Add(vector []float32, text string, metadata domain.Metadata) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(vector) != s.dimension {
		return 0, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(vector))
	}
	s.entries = append(s.entries, newEntry(vector, text, metadata))
	return len(s.entries) - 1, nil
}

// AddMany validates every item before appending any of them.
// metadatas may be nil; otherwise it must match vectors in length.
func (s *Index) AddMany(vectors [][]float32, texts []string, metadatas []domain.Metadata) (int, error) {
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("%w: %d vectors, %d texts", domain.ErrArityMismatch, len(vectors), len(texts))
	}
	if metadatas != nil && len(metadatas) != len(vectors) {
		return 0, fmt.Errorf("%w: %d vectors, %d metadata entries", domain.ErrArityMismatch, len(vectors), len(metadatas))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, v := range vectors {
		if len(v) != s.dimension {
			return 0, fmt.Errorf("%w: vector %d: expected %d, got %d", domain.ErrDimensionMismatch, i, s.dimension, len(v))
		}
	}
	batch := make([]entry, len(vectors))
	for i, v := range vectors {
		var md domain.Metadata
		if metadatas != nil {
			md = metadatas[i]
		}
		batch[i] = newEntry(v, texts[i], md)
	}
	s.entries = append(s.entries, batch...)
	return len(batch), nil
}

// Search returns up to k entries closest to query in ascending distance,
// ties broken by ascending ordinal. An empty index yields no results.
func (s *Index) Search(query []float32, k int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.search(query, k)
}

// SearchTexts returns the passage texts of the k nearest entries.
func (s *Index) SearchTexts(query []float32, k int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	neighbors, err := s.search(query, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(neighbors))
	for i, n := range neighbors {
		texts[i] = s.entries[n.Ordinal].text
	}
	return texts, nil
}

// SearchWithScore returns the k nearest entries with score = 1/(1+distance).
func (s *Index) SearchWithScore(query []float32, k int) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	neighbors, err := s.search(query, k)
	if err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, len(neighbors))
	for i, n := range neighbors {
		e := s.entries[n.Ordinal]
		hits[i] = domain.SearchHit{
			Text:     e.text,
			Metadata: maps.Clone(e.metadata),
			Distance: n.Distance,
			Score:    1 / (1 + n.Distance),
		}
	}
	return hits, nil
}

func (s *Index) search(query []float32, k int) ([]domain.Neighbor, error) {
	if len(s.entries) == 0 {
		return []domain.Neighbor{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(query))
	}
	if k > len(s.entries) {
		k = len(s.entries)
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}

	all := make([]domain.Neighbor, len(s.entries))
	for i := range s.entries {
		all[i] = domain.Neighbor{Ordinal: i, Distance: squaredL2(query, s.entries[i].vector)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].Ordinal < all[j].Ordinal
	})
	return all[:k:k], nil
}

// Persist writes the snapshot for base path to disk, replacing any previous one.
// The entries are captured under a read lock and written without holding it,
// so searches and adds proceed during the file I/O.
func (s *Index) Persist(base string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	dim := s.dimension
	// Slots below len are never rewritten, and the cap stops appends from reaching this view.
	entries := s.entries[:len(s.entries):len(s.entries)]
	s.mu.RUnlock()

	snap := vectorstore.Snapshot{
		Dimension: dim,
		Vectors:   make([][]float32, len(entries)),
		Chunks:    make([]string, len(entries)),
		Metadata:  make([]domain.Metadata, len(entries)),
	}
	for i, e := range entries {
		snap.Vectors[i] = e.vector
		snap.Chunks[i] = e.text
		snap.Metadata[i] = e.metadata
	}
	return vectorstore.WriteSnapshot(base, snap)
}

// Restore replaces the index content with the snapshot at base.
// It reports false, without error, when no snapshot exists.
func (s *Index) Restore(base string) (bool, error) {
	snap, found, err := vectorstore.ReadSnapshot(base)
	if err != nil || !found {
		return false, err
	}
	entries := make([]entry, len(snap.Vectors))
	for i := range snap.Vectors {
		entries[i] = entry{vector: snap.Vectors[i], text: snap.Chunks[i], metadata: snap.Metadata[i]}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = snap.Dimension
	s.entries = entries
	return true, nil
}

// Stats reports entry count, dimension and the raw vector footprint.
func (s *Index) Stats() domain.IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.IndexStats{
		Entries:        len(s.entries),
		Dimension:      s.dimension,
		EstimatedBytes: int64(len(s.entries)) * int64(s.dimension) * 4,
	}
}

func newEntry(vector []float32, text string, metadata domain.Metadata) entry {
	md := maps.Clone(metadata)
	if md == nil {
		md = domain.Metadata{}
	}
	return entry{
		vector:   append([]float32(nil), vector...),
		text:     text,
		metadata: md,
	}
}

func squaredL2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
