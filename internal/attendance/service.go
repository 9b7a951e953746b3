// Package attendance is the entry point used by the HTTP API and the CLI:
// it resolves probe embeddings to students, marks them present and serves
// dashboards and enrollment.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/constants"
	"github.com/kozaktomas/facial-attendance/internal/dashboard"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/kozaktomas/facial-attendance/internal/ledger"
	"github.com/kozaktomas/facial-attendance/internal/recognition"
)

// Status is the user-facing outcome of a mark request.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusNotRecognized Status = "not_recognized"
	StatusAlreadyMarked Status = "already_marked"
	StatusNoFace        Status = "no_face"
	StatusError         Status = "error"
)

const (
	msgMarked          = "Attendance marked successfully!"
	msgAlreadyMarked   = "Already marked for this session today."
	msgNotRecognized   = "Face not recognized."
	msgNoneEnrolled    = "No faces enrolled in the system."
	msgNoFace          = "No face detected."
	msgSessionNotFound = "session not found"
)

// Extractor turns an image into a face embedding.
type Extractor interface {
	// ExtractEmbedding returns database.ErrNoFaceDetected if the image has no face
	ExtractEmbedding(ctx context.Context, image []byte) ([]float32, error)
}

// MatchedIdentity is the student a probe was resolved to.
type MatchedIdentity struct {
	RegNo      string  `json:"registration_number"`
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// MarkResult is returned by ResolveAndMark.
type MarkResult struct {
	Status     Status                     `json:"status"`
	Message    string                     `json:"message"`
	Identity   *MatchedIdentity           `json:"matchedIdentity,omitempty"`
	Record     *database.AttendanceRecord `json:"record,omitempty"`
	Similarity float64                    `json:"similarity,omitempty"`
}

// Service wires the matcher, the ledger and the dashboard aggregator.
type Service struct {
	identities   *recognition.Store
	matcher      *recognition.Matcher
	ledger       *ledger.Ledger
	dashboard    *dashboard.Aggregator
	directory    database.StudentDirectory
	extractor    Extractor
	similarLimit int
	now          func() time.Time
}

// Options configures a Service.
type Options struct {
	Extractor    Extractor // optional, required for image endpoints
	SimilarLimit int
	Now          func() time.Time
}

// NewService creates the attendance service.
func NewService(identities *recognition.Store, matcher *recognition.Matcher, l *ledger.Ledger,
	agg *dashboard.Aggregator, directory database.StudentDirectory, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = constants.DefaultSimilarLimit
	}
	return &Service{
		identities:   identities,
		matcher:      matcher,
		ledger:       l,
		dashboard:    agg,
		directory:    directory,
		extractor:    opts.Extractor,
		similarLimit: opts.SimilarLimit,
		now:          opts.Now,
	}
}

// Threshold returns the matcher threshold.
func (s *Service) Threshold() float64 {
	return s.matcher.Threshold()
}

// Dim returns the embedding dimension of the identity store.
func (s *Service) Dim() int {
	return s.identities.Dim()
}

// HasExtractor reports whether image endpoints are available.
func (s *Service) HasExtractor() bool {
	return s.extractor != nil
}

// DirectoryWritable reports whether students can be added through the service.
func (s *Service) DirectoryWritable() bool {
	_, ok := s.directory.(database.StudentWriter)
	return ok
}

// checkSession returns a non-nil result when the session cannot be marked.
func (s *Service) checkSession(ctx context.Context, sessionName string) (*MarkResult, error) {
	if sessionName == "" {
		return nil, fmt.Errorf("%w: session name is required", database.ErrInvalidInput)
	}
	_, err := s.ledger.GetSession(ctx, sessionName)
	if errors.Is(err, database.ErrNotFound) {
		return &MarkResult{Status: StatusError, Message: msgSessionNotFound}, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

// ResolveAndMark matches probe against the enrolled identities and marks the
// recognized student present in sessionName. Expected outcomes are reported in
// the result; the error is reserved for invalid input and storage failures.
func (s *Service) ResolveAndMark(ctx context.Context, probe []float32, sessionName, mode string) (*MarkResult, error) {
	if res, err := s.checkSession(ctx, sessionName); res != nil || err != nil {
		return res, err
	}
	return s.resolveAndMark(ctx, probe, sessionName, mode)
}

func (s *Service) resolveAndMark(ctx context.Context, probe []float32, sessionName, mode string) (*MarkResult, error) {
	match, err := s.matcher.Match(s.identities.Snapshot(), probe)
	if err != nil {
		return nil, err
	}

	switch match.Status {
	case recognition.NoIdentitiesEnrolled:
		return &MarkResult{Status: StatusNotRecognized, Message: msgNoneEnrolled}, nil
	case recognition.NotRecognized:
		return &MarkResult{Status: StatusNotRecognized, Message: msgNotRecognized, Similarity: match.Similarity}, nil
	}

	identity := &MatchedIdentity{RegNo: match.RegNo, Name: match.DisplayName, Similarity: match.Similarity}

	out, err := s.ledger.MarkPresent(ctx, match.RegNo, sessionName, mode, s.now())
	if err != nil {
		return nil, err
	}

	switch out.Status {
	case ledger.Marked:
		identity.Name = out.DisplayName
		return &MarkResult{
			Status:   StatusSuccess,
			Message:  fmt.Sprintf("%s: %s", out.DisplayName, msgMarked),
			Identity: identity,
			Record:   out.Record,
		}, nil
	case ledger.AlreadyMarked:
		identity.Name = out.DisplayName
		return &MarkResult{
			Status:   StatusAlreadyMarked,
			Message:  fmt.Sprintf("%s: %s", out.DisplayName, msgAlreadyMarked),
			Identity: identity,
			Record:   out.Record,
		}, nil
	default:
		return &MarkResult{
			Status:   StatusError,
			Message:  fmt.Sprintf("No student found with registration number %s.", match.RegNo),
			Identity: identity,
		}, nil
	}
}

// ResolveImageAndMark extracts the face embedding of image and marks the student.
func (s *Service) ResolveImageAndMark(ctx context.Context, image []byte, sessionName, mode string) (*MarkResult, error) {
	if s.extractor == nil {
		return nil, errors.New("no embedding extractor configured")
	}
	if res, err := s.checkSession(ctx, sessionName); res != nil || err != nil {
		return res, err
	}

	probe, err := s.extractor.ExtractEmbedding(ctx, image)
	if errors.Is(err, database.ErrNoFaceDetected) {
		return &MarkResult{Status: StatusNoFace, Message: msgNoFace}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extract embedding: %w", err)
	}
	return s.resolveAndMark(ctx, probe, sessionName, mode)
}

// GetDashboard returns the attendance dashboard of regNo.
func (s *Service) GetDashboard(ctx context.Context, regNo string) (*dashboard.Data, error) {
	return s.dashboard.ComputeDashboard(ctx, regNo)
}

// CreateSession stores a new session definition.
func (s *Service) CreateSession(ctx context.Context, session database.Session) (*database.Session, error) {
	return s.ledger.CreateSession(ctx, session)
}

// ListSessions returns all session definitions.
func (s *Service) ListSessions(ctx context.Context) ([]database.Session, error) {
	return s.ledger.ListSessions(ctx)
}

// ListSessionAttendance returns who was present in a session on a day.
func (s *Service) ListSessionAttendance(ctx context.Context, sessionName, date string) ([]database.AttendanceRecord, error) {
	if _, err := s.ledger.GetSession(ctx, sessionName); err != nil {
		return nil, err
	}
	return s.ledger.ListSessionAttendance(ctx, sessionName, date)
}
