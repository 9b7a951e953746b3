package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
)

// Neighbor is a single nearest-neighbour hit with its exact cosine similarity.
type Neighbor struct {
	RegNo      string
	Similarity float64
}

// HNSWIdentityIndex wraps the HNSW graph for approximate identity search.
// Keys are registration numbers. Results are re-ranked by exact cosine similarity.
type HNSWIdentityIndex struct {
	graph   *hnsw.Graph[string]
	vectors map[string][]float32
	mu      sync.RWMutex
}

// NewHNSWIdentityIndex builds an index from identities.
// Identities without an embedding or with a zero-norm embedding are not indexed.
func NewHNSWIdentityIndex(identities []StoredIdentity) *HNSWIdentityIndex {
	h := &HNSWIdentityIndex{
		vectors: make(map[string][]float32, len(identities)),
	}

	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	for i := range identities {
		id := &identities[i]
		if len(id.Embedding) == 0 || Norm(id.Embedding) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(id.RegNo, id.Embedding))
		h.vectors[id.RegNo] = id.Embedding
	}

	if len(h.vectors) > 0 {
		h.graph = g
	}
	return h
}

// Search finds up to k identities closest to the query, most similar first.
// Ties are ordered by registration number.
func (h *HNSWIdentityIndex) Search(query []float32, k int) ([]Neighbor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	if h.graph == nil {
		return nil, errors.New("index not initialized")
	}

	nodes := h.graph.Search(query, k*HNSWSearchMultiplier)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		vec, ok := h.vectors[n.Key]
		if !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			RegNo:      n.Key,
			Similarity: CosineSimilarity(query, vec),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].RegNo < neighbors[j].RegNo
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Count returns the number of indexed identities.
func (h *HNSWIdentityIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.vectors)
}
