package database

// FaceEmbeddingDim is the default dimension for face embeddings (512 for FaceNet/ArcFace models)
const FaceEmbeddingDim = 512

// HNSW index parameters for 512-dim face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after exact re-ranking.
	HNSWSearchMultiplier = 3
)
