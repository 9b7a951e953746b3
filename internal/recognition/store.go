// Package recognition holds the in-memory identity store and the matcher
// that resolves probe embeddings to enrolled identities.
package recognition

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// Store keeps enrolled embeddings in memory and mirrors every change to
// persistent storage. Readers take a Snapshot and never block writers.
type Store struct {
	repo    database.IdentityWriter
	dim     int
	timeout time.Duration

	mu      sync.Mutex // serializes writers
	current atomic.Pointer[Snapshot]
}

// NewStore creates an empty store for embeddings of length dim.
func NewStore(repo database.IdentityWriter, dim int, timeout time.Duration) *Store {
	if dim <= 0 {
		dim = database.FaceEmbeddingDim
	}
	s := &Store{repo: repo, dim: dim, timeout: timeout}
	s.current.Store(newSnapshot(dim, nil))
	return s
}

// Dim returns the fixed embedding dimension.
func (s *Store) Dim() int {
	return s.dim
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Load replaces the in-memory view with all identities from storage and returns
// the count loaded. On storage failure an empty view is published and the error
// wraps database.ErrStorageUnavailable (or ErrStorageTimeout).
func (s *Store) Load(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stored, err := s.repo.ListIdentities(ctx)
	if err != nil {
		s.current.Store(newSnapshot(s.dim, nil))
		return 0, database.StorageError("load identities", err)
	}

	entries := make([]Entry, 0, len(stored))
	for _, id := range stored {
		if len(id.Embedding) != s.dim {
			log.Printf("Skipping identity %s: embedding has %d dimensions, expected %d", id.RegNo, len(id.Embedding), s.dim)
			continue
		}
		entries = append(entries, Entry{RegNo: id.RegNo, DisplayName: id.DisplayName, Embedding: id.Embedding})
	}
	s.current.Store(newSnapshot(s.dim, entries))
	return len(entries), nil
}

// Reload is Load for callers picking up enrollments made elsewhere.
func (s *Store) Reload(ctx context.Context) (int, error) {
	return s.Load(ctx)
}

// Upsert validates and persists the identity, then publishes a new snapshot.
// Nothing is published when persistence fails.
func (s *Store) Upsert(ctx context.Context, regNo, displayName string, embedding []float32) error {
	if regNo == "" {
		return fmt.Errorf("%w: registration number is required", database.ErrInvalidInput)
	}
	if len(embedding) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", database.ErrEmbeddingDimensionMismatch, len(embedding), s.dim)
	}
	for _, x := range embedding {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: embedding contains NaN or Inf", database.ErrInvalidInput)
		}
	}

	vec := slices.Clone(embedding)

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	err := s.repo.UpsertIdentity(ctx, database.StoredIdentity{
		RegNo:       regNo,
		DisplayName: displayName,
		Embedding:   vec,
		Dim:         len(vec),
	})
	if err != nil {
		return database.StorageError("upsert identity", err)
	}

	s.current.Store(s.current.Load().withEntry(Entry{RegNo: regNo, DisplayName: displayName, Embedding: vec}))
	return nil
}

// Delete removes the identity and reports whether it existed.
func (s *Store) Delete(ctx context.Context, regNo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	existed, err := s.repo.DeleteIdentity(ctx, regNo)
	if err != nil {
		return false, database.StorageError("delete identity", err)
	}

	snap := s.current.Load()
	if snap.Has(regNo) {
		s.current.Store(snap.withoutEntry(regNo))
		existed = true
	}
	return existed, nil
}
