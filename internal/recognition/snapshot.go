package recognition

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// Entry is one enrolled identity inside a snapshot.
type Entry struct {
	RegNo       string
	DisplayName string
	Embedding   []float32
	norm        float64
}

// Snapshot is an immutable view of the enrolled identities, ordered by
// registration number. Safe for concurrent use without locking.
type Snapshot struct {
	dim     int
	entries []Entry
	byRegNo map[string]int

	indexOnce sync.Once
	index     *database.HNSWIdentityIndex
}

func newSnapshot(dim int, entries []Entry) *Snapshot {
	sort.Slice(entries, func(i, j int) bool { return entries[i].RegNo < entries[j].RegNo })
	byRegNo := make(map[string]int, len(entries))
	for i := range entries {
		entries[i].norm = database.Norm(entries[i].Embedding)
		byRegNo[entries[i].RegNo] = i
	}
	return &Snapshot{dim: dim, entries: entries, byRegNo: byRegNo}
}

// withEntry returns a new snapshot with e inserted or replaced.
func (s *Snapshot) withEntry(e Entry) *Snapshot {
	entries := make([]Entry, 0, len(s.entries)+1)
	for _, existing := range s.entries {
		if existing.RegNo != e.RegNo {
			entries = append(entries, existing)
		}
	}
	entries = append(entries, e)
	return newSnapshot(s.dim, entries)
}

// withoutEntry returns a new snapshot without regNo.
func (s *Snapshot) withoutEntry(regNo string) *Snapshot {
	entries := make([]Entry, 0, len(s.entries))
	for _, existing := range s.entries {
		if existing.RegNo != regNo {
			entries = append(entries, existing)
		}
	}
	return newSnapshot(s.dim, entries)
}

// Len returns the number of identities in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Dim returns the embedding dimension of the snapshot.
func (s *Snapshot) Dim() int {
	return s.dim
}

// Get returns the entry for regNo.
func (s *Snapshot) Get(regNo string) (Entry, bool) {
	i, ok := s.byRegNo[regNo]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Has reports whether regNo is enrolled.
func (s *Snapshot) Has(regNo string) bool {
	_, ok := s.byRegNo[regNo]
	return ok
}

// Entries returns a copy of the entries ordered by registration number.
// Embeddings are shared and must not be modified.
func (s *Snapshot) Entries() []Entry {
	return slices.Clone(s.entries)
}

// Nearest returns up to k enrolled identities most similar to probe,
// using the HNSW graph built on first use and exact cosine re-ranking.
func (s *Snapshot) Nearest(probe []float32, k int) ([]database.Neighbor, error) {
	if len(probe) != s.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", database.ErrEmbeddingDimensionMismatch, len(probe), s.dim)
	}
	if k <= 0 || len(s.entries) == 0 || database.Norm(probe) == 0 {
		return nil, nil
	}

	s.indexOnce.Do(func() {
		identities := make([]database.StoredIdentity, len(s.entries))
		for i, e := range s.entries {
			identities[i] = database.StoredIdentity{RegNo: e.RegNo, DisplayName: e.DisplayName, Embedding: e.Embedding}
		}
		s.index = database.NewHNSWIdentityIndex(identities)
	})
	if s.index.Count() == 0 {
		return nil, nil
	}
	return s.index.Search(probe, k)
}
