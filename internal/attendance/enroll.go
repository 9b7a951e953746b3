package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kozaktomas/facial-attendance/internal/constants"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// Conflict is an already enrolled identity that resembles a new enrollment
// closely enough to be matched instead of it.
type Conflict struct {
	RegNo       string  `json:"registration_number"`
	DisplayName string  `json:"name"`
	Similarity  float64 `json:"similarity"`
}

// EnrollResult summarizes an enrollment.
type EnrollResult struct {
	RegNo       string     `json:"registration_number"`
	DisplayName string     `json:"name"`
	Processed   int        `json:"processed"`
	Skipped     int        `json:"skipped"`
	Conflicts   []Conflict `json:"conflicts"`
}

// Identity is an enrolled identity without its embedding.
type Identity struct {
	RegNo       string `json:"registration_number"`
	DisplayName string `json:"name"`
}

// resolveDisplayName returns name, or the directory name when name is empty.
func (s *Service) resolveDisplayName(ctx context.Context, regNo, name string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	student, err := s.directory.GetStudent(ctx, regNo)
	if err != nil {
		return "", database.StorageError("resolve student", err)
	}
	if student == nil {
		return "", fmt.Errorf("%w: name is required for %s, student is not in the directory", database.ErrInvalidInput, regNo)
	}
	return student.DisplayName(), nil
}

// Enroll extracts a face embedding from each image, averages the embeddings and
// stores the result for regNo. Images without a usable face are skipped; if
// none is usable the error is database.ErrNoFaceDetected.
func (s *Service) Enroll(ctx context.Context, regNo, displayName string, images [][]byte) (*EnrollResult, error) {
	if s.extractor == nil {
		return nil, errors.New("no embedding extractor configured")
	}
	regNo = strings.TrimSpace(regNo)
	if regNo == "" || len(images) == 0 {
		return nil, fmt.Errorf("%w: registration number and at least one image are required", database.ErrInvalidInput)
	}
	name, err := s.resolveDisplayName(ctx, regNo, displayName)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(images))
	sem := make(chan struct{}, constants.EnrollConcurrency)
	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img []byte) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			emb, err := s.extractor.ExtractEmbedding(ctx, img)
			if err != nil {
				log.Printf("Enroll %s: skipping image %d: %v", sanitizeForLog(regNo), i, err)
				return
			}
			if len(emb) != s.identities.Dim() {
				log.Printf("Enroll %s: skipping image %d: embedding has %d dimensions", sanitizeForLog(regNo), i, len(emb))
				return
			}
			embeddings[i] = emb
		}(i, img)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	accepted := make([][]float32, 0, len(embeddings))
	for _, emb := range embeddings {
		if emb != nil {
			accepted = append(accepted, emb)
		}
	}
	if len(accepted) == 0 {
		return nil, fmt.Errorf("enroll %s: %w in any of the %d images", regNo, database.ErrNoFaceDetected, len(images))
	}

	result, err := s.EnrollEmbedding(ctx, regNo, name, database.MeanEmbedding(accepted))
	if err != nil {
		return nil, err
	}
	result.Processed = len(accepted)
	result.Skipped = len(images) - len(accepted)
	return result, nil
}

// EnrollEmbedding stores an already computed embedding for regNo and reports
// other identities it could be confused with.
func (s *Service) EnrollEmbedding(ctx context.Context, regNo, displayName string, embedding []float32) (*EnrollResult, error) {
	regNo = strings.TrimSpace(regNo)
	if regNo == "" {
		return nil, fmt.Errorf("%w: registration number is required", database.ErrInvalidInput)
	}
	name, err := s.resolveDisplayName(ctx, regNo, displayName)
	if err != nil {
		return nil, err
	}

	if err := s.identities.Upsert(ctx, regNo, name, embedding); err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts(regNo, embedding)
	if err != nil {
		// the identity is stored, conflict detection is advisory
		log.Printf("Enroll %s: conflict lookup failed: %v", sanitizeForLog(regNo), err)
	}

	return &EnrollResult{
		RegNo:       regNo,
		DisplayName: name,
		Processed:   1,
		Conflicts:   conflicts,
	}, nil
}

func (s *Service) conflicts(regNo string, embedding []float32) ([]Conflict, error) {
	snap := s.identities.Snapshot()
	neighbors, err := snap.Nearest(embedding, s.similarLimit+1)
	if err != nil {
		return nil, err
	}

	conflicts := []Conflict{}
	for _, n := range neighbors {
		if n.RegNo == regNo || n.Similarity <= s.matcher.Threshold() {
			continue
		}
		e, _ := snap.Get(n.RegNo)
		conflicts = append(conflicts, Conflict{RegNo: n.RegNo, DisplayName: e.DisplayName, Similarity: n.Similarity})
	}
	return conflicts, nil
}

// SimilarIdentities returns up to k enrolled identities closest to embedding.
func (s *Service) SimilarIdentities(embedding []float32, k int) ([]Conflict, error) {
	if k <= 0 {
		k = s.similarLimit
	}
	snap := s.identities.Snapshot()
	neighbors, err := snap.Nearest(embedding, k)
	if err != nil {
		return nil, err
	}
	result := make([]Conflict, 0, len(neighbors))
	for _, n := range neighbors {
		e, _ := snap.Get(n.RegNo)
		result = append(result, Conflict{RegNo: n.RegNo, DisplayName: e.DisplayName, Similarity: n.Similarity})
	}
	return result, nil
}

// DeleteIdentity removes the enrolled face of regNo.
func (s *Service) DeleteIdentity(ctx context.Context, regNo string) (bool, error) {
	return s.identities.Delete(ctx, regNo)
}

// ReloadIdentities reloads enrolled identities from storage.
func (s *Service) ReloadIdentities(ctx context.Context) (int, error) {
	return s.identities.Reload(ctx)
}

// ListIdentities returns the enrolled identities ordered by registration number.
func (s *Service) ListIdentities() []Identity {
	entries := s.identities.Snapshot().Entries()
	result := make([]Identity, len(entries))
	for i, e := range entries {
		result[i] = Identity{RegNo: e.RegNo, DisplayName: e.DisplayName}
	}
	return result
}

// Identity returns the enrolled identity of regNo.
func (s *Service) Identity(regNo string) (Identity, bool) {
	e, ok := s.identities.Snapshot().Get(regNo)
	if !ok {
		return Identity{}, false
	}
	return Identity{RegNo: e.RegNo, DisplayName: e.DisplayName}, true
}

// sanitizeForLog strips newlines from user-controlled values before logging.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}
