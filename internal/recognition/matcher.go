package recognition

import (
	"fmt"
	"math"

	"github.com/kozaktomas/facial-attendance/internal/database"
)

// DefaultThreshold is the minimum similarity a match must exceed.
const DefaultThreshold = 0.6

// Status is the outcome of a match.
type Status int

const (
	NoIdentitiesEnrolled Status = iota
	NotRecognized
	Recognized
)

func (s Status) String() string {
	switch s {
	case NoIdentitiesEnrolled:
		return "no_identities_enrolled"
	case NotRecognized:
		return "not_recognized"
	case Recognized:
		return "recognized"
	default:
		return "unknown"
	}
}

// Result is a match decision. RegNo and DisplayName are only set when
// Status is Recognized; Similarity is the best similarity seen.
type Result struct {
	Status      Status
	RegNo       string
	DisplayName string
	Similarity  float64
}

// Matcher applies a fixed acceptance threshold to nearest-identity search.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher. The threshold must lie in [0,1].
func NewMatcher(threshold float64) (*Matcher, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Matcher{threshold: threshold}, nil
}

// Threshold returns the configured threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match resolves probe against snap with the matcher's threshold.
func (m *Matcher) Match(snap *Snapshot, probe []float32) (Result, error) {
	return Match(snap, probe, m.threshold)
}

// Match finds the identity in snap with the highest cosine similarity to probe.
// The best identity is accepted only if its similarity is strictly greater than
// threshold. Equal similarities resolve to the lowest registration number.
func Match(snap *Snapshot, probe []float32, threshold float64) (Result, error) {
	if err := validateThreshold(threshold); err != nil {
		return Result{}, err
	}
	if snap == nil || snap.Len() == 0 {
		return Result{Status: NoIdentitiesEnrolled}, nil
	}
	if len(probe) != snap.dim {
		return Result{}, fmt.Errorf("%w: got %d, want %d", database.ErrEmbeddingDimensionMismatch, len(probe), snap.dim)
	}

	probeNorm := database.Norm(probe)
	best := -1
	bestSim := math.Inf(-1)
	// entries are sorted by regNo, strict > keeps the lowest on ties
	for i := range snap.entries {
		e := &snap.entries[i]
		sim := database.CosineSimilarityWithNorms(probe, e.Embedding, probeNorm, e.norm)
		if sim > bestSim {
			best = i
			bestSim = sim
		}
	}

	if bestSim <= threshold {
		return Result{Status: NotRecognized, Similarity: bestSim}, nil
	}
	e := snap.entries[best]
	return Result{
		Status:      Recognized,
		RegNo:       e.RegNo,
		DisplayName: e.DisplayName,
		Similarity:  bestSim,
	}, nil
}

func validateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0,1]", database.ErrInvalidInput, threshold)
	}
	return nil
}
