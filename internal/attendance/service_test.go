package attendance

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/facial-attendance/internal/dashboard"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/kozaktomas/facial-attendance/internal/database/mock"
	"github.com/kozaktomas/facial-attendance/internal/ledger"
	"github.com/kozaktomas/facial-attendance/internal/recognition"
)

// fakeExtractor maps image contents to embeddings.
type fakeExtractor struct {
	mu         sync.Mutex
	embeddings map[string][]float32
	calls      int
}

func (f *fakeExtractor) ExtractEmbedding(ctx context.Context, image []byte) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	emb, ok := f.embeddings[string(image)]
	if !ok {
		return nil, database.ErrNoFaceDetected
	}
	return emb, nil
}

var fixedNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	svc       *Service
	store     *mock.Store
	extractor *fakeExtractor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := mock.NewStore()
	store.AddStudent(database.Student{RegNo: "21BCE001", FirstName: "Asha", LastName: "Rao"})
	store.AddStudent(database.Student{RegNo: "21BCE002", FirstName: "Ravi", LastName: "Kumar"})
	store.AddStudent(database.Student{RegNo: "21BCE003", FirstName: "Zoë", LastName: "Núñez"})
	store.AddSession(database.Session{SessionName: "DBMS-A", Subject: "DBMS", TotalClasses: 10})

	identities := recognition.NewStore(store, 3, 0)
	matcher, err := recognition.NewMatcher(0.6)
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}
	l := ledger.New(store, store, store, ledger.Options{Location: time.UTC, DefaultMode: "in-person"})
	agg := dashboard.NewAggregator(store, store, store, 0)
	ex := &fakeExtractor{embeddings: map[string][]float32{
		"asha-1": {1, 0, 0},
		"asha-2": {0.8, 0.2, 0},
		"ravi":   {0, 1, 0},
		"bad":    {1, 0},
	}}

	svc := NewService(identities, matcher, l, agg, store, Options{
		Extractor: ex,
		Now:       func() time.Time { return fixedNow },
	})
	return &testEnv{svc: svc, store: store, extractor: ex}
}

func TestResolveAndMark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "DBMS-A", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusNotRecognized || res.Message != "No faces enrolled in the system." {
		t.Errorf("expected no faces enrolled, got %+v", res)
	}

	if _, err := env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0}); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	res, err = env.svc.ResolveAndMark(ctx, []float32{0.9, 0.1, 0}, "DBMS-A", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSuccess || res.Message != "Asha Rao: Attendance marked successfully!" {
		t.Errorf("expected success, got %+v", res)
	}
	if res.Identity == nil || res.Identity.RegNo != "21BCE001" {
		t.Errorf("expected matched identity, got %+v", res.Identity)
	}
	if res.Record == nil || res.Record.Date != "2026-03-02" || res.Record.Mode != "in-person" {
		t.Errorf("unexpected record %+v", res.Record)
	}

	res, _ = env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "DBMS-A", "")
	if res.Status != StatusAlreadyMarked || res.Message != "Asha Rao: Already marked for this session today." {
		t.Errorf("expected already marked, got %+v", res)
	}

	res, _ = env.svc.ResolveAndMark(ctx, []float32{0, 0, 1}, "DBMS-A", "")
	if res.Status != StatusNotRecognized || res.Message != "Face not recognized." || res.Identity != nil {
		t.Errorf("expected not recognized, got %+v", res)
	}

	res, err = env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "Unknown-Session", "")
	if err != nil || res.Status != StatusError || res.Message != "session not found" {
		t.Errorf("expected session not found, got %+v %v", res, err)
	}

	if _, err := env.svc.ResolveAndMark(ctx, []float32{1, 0}, "DBMS-A", ""); !errors.Is(err, database.ErrEmbeddingDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if _, err := env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "", ""); !errors.Is(err, database.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}

	if n := len(env.store.Records()); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestResolveAndMark_DirectoryDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// enrolled face whose student is missing from the directory
	if _, err := env.svc.EnrollEmbedding(ctx, "99OLD999", "Former Student", []float32{0, 0, 1}); err != nil {
		t.Fatalf("enroll failed: %v", err)
	}

	res, err := env.svc.ResolveAndMark(ctx, []float32{0, 0, 1}, "DBMS-A", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusError || !strings.Contains(res.Message, "99OLD999") {
		t.Errorf("expected unknown identity error, got %+v", res)
	}
	if len(env.store.Records()) != 0 {
		t.Error("unknown identity must not write a record")
	}
}

func TestResolveImageAndMark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.EnrollEmbedding(ctx, "21BCE002", "", []float32{0, 1, 0})

	res, err := env.svc.ResolveImageAndMark(ctx, []byte("no face here"), "DBMS-A", "")
	if err != nil || res.Status != StatusNoFace || res.Message != "No face detected." {
		t.Errorf("expected no_face, got %+v %v", res, err)
	}

	res, err = env.svc.ResolveImageAndMark(ctx, []byte("ravi"), "DBMS-A", "offline")
	if err != nil || res.Status != StatusSuccess {
		t.Fatalf("expected success, got %+v %v", res, err)
	}
	if res.Record.Mode != "offline" {
		t.Errorf("expected offline mode, got %s", res.Record.Mode)
	}

	calls := env.extractor.calls
	res, _ = env.svc.ResolveImageAndMark(ctx, []byte("ravi"), "Nope", "")
	if res.Status != StatusError || env.extractor.calls != calls {
		t.Error("unknown session must be rejected before extraction")
	}
}

func TestResolveAndMark_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0})

	const n = 16
	var wg sync.WaitGroup
	statuses := make(chan Status, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "DBMS-A", "")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			statuses <- res.Status
		}()
	}
	wg.Wait()
	close(statuses)

	counts := map[Status]int{}
	for s := range statuses {
		counts[s]++
	}
	if counts[StatusSuccess] != 1 || counts[StatusAlreadyMarked] != n-1 {
		t.Errorf("expected one success, got %v", counts)
	}
}

func TestEnroll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	images := [][]byte{[]byte("asha-1"), []byte("blurry"), []byte("asha-2"), []byte("bad")}
	res, err := env.svc.Enroll(ctx, "21BCE001", "", images)
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if res.Processed != 2 || res.Skipped != 2 {
		t.Errorf("expected 2 processed and 2 skipped, got %+v", res)
	}
	if res.DisplayName != "Asha Rao" {
		t.Errorf("expected directory name, got %q", res.DisplayName)
	}

	stored, _ := env.store.GetIdentity(ctx, "21BCE001")
	if stored == nil || math.Abs(float64(stored.Embedding[0])-0.9) > 1e-6 || math.Abs(float64(stored.Embedding[1])-0.1) > 1e-6 {
		t.Errorf("expected mean embedding [0.9 0.1 0], got %+v", stored)
	}

	_, err = env.svc.Enroll(ctx, "21BCE002", "", [][]byte{[]byte("blurry"), []byte("dark")})
	if !errors.Is(err, database.ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
	if _, err := env.svc.Enroll(ctx, "21BCE002", "", nil); !errors.Is(err, database.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.svc.Enroll(ctx, "unknown", "", [][]byte{[]byte("ravi")}); !errors.Is(err, database.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without a name, got %v", err)
	}
}

func TestEnrollEmbedding_ReportsConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0})
	env.svc.EnrollEmbedding(ctx, "21BCE002", "", []float32{0, 1, 0})

	res, err := env.svc.EnrollEmbedding(ctx, "21BCE003", "", []float32{0.95, 0.05, 0})
	if err != nil {
		t.Fatalf("enroll failed: %v", err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0].RegNo != "21BCE001" {
		t.Errorf("expected conflict with 21BCE001, got %+v", res.Conflicts)
	}
	if res.Conflicts[0].DisplayName != "Asha Rao" {
		t.Errorf("expected conflict name, got %q", res.Conflicts[0].DisplayName)
	}

	if _, err := env.svc.EnrollEmbedding(ctx, "21BCE003", "", []float32{1, 0}); !errors.Is(err, database.ErrEmbeddingDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}

	similar, err := env.svc.SimilarIdentities([]float32{0, 1, 0}, 1)
	if err != nil || len(similar) != 1 || similar[0].RegNo != "21BCE002" {
		t.Errorf("unexpected similar identities %+v %v", similar, err)
	}
}

func TestIdentityLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.svc.EnrollEmbedding(ctx, "21BCE002", "", []float32{0, 1, 0})
	env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0})

	ids := env.svc.ListIdentities()
	if len(ids) != 2 || ids[0].RegNo != "21BCE001" {
		t.Errorf("unexpected identities %+v", ids)
	}

	existed, err := env.svc.DeleteIdentity(ctx, "21BCE001")
	if err != nil || !existed {
		t.Errorf("expected delete, got %v %v", existed, err)
	}
	res, _ := env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "DBMS-A", "")
	if res.Status != StatusNotRecognized {
		t.Errorf("deleted identity must not match, got %+v", res)
	}

	// enrolled elsewhere, picked up by reload
	env.store.AddIdentity(database.StoredIdentity{RegNo: "21BCE003", DisplayName: "Zoë Núñez", Embedding: []float32{0, 0, 1}})
	n, err := env.svc.ReloadIdentities(ctx)
	if err != nil || n != 2 {
		t.Errorf("expected 2 identities after reload, got %d %v", n, err)
	}
}

func TestListStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0})

	all, err := env.svc.ListStudents(ctx, StudentFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 students, got %d %v", len(all), err)
	}
	if !all[0].Enrolled || all[1].Enrolled {
		t.Errorf("unexpected enrolled flags %+v", all)
	}

	no := false
	unenrolled, _ := env.svc.ListStudents(ctx, StudentFilter{Enrolled: &no})
	if len(unenrolled) != 2 {
		t.Errorf("expected 2 students without faces, got %d", len(unenrolled))
	}

	found, _ := env.svc.ListStudents(ctx, StudentFilter{Query: "zoe nunez"})
	if len(found) != 1 || found[0].RegNo != "21BCE003" {
		t.Errorf("expected diacritics-insensitive match, got %+v", found)
	}
	found, _ = env.svc.ListStudents(ctx, StudentFilter{Query: "bce002"})
	if len(found) != 1 || found[0].RegNo != "21BCE002" {
		t.Errorf("expected regNo match, got %+v", found)
	}
}

func TestUpsertStudent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.svc.UpsertStudent(ctx, database.Student{RegNo: "21BCE004", FirstName: "Meera"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := env.svc.UpsertStudent(ctx, database.Student{RegNo: "21BCE005"}); !errors.Is(err, database.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	ro := NewService(env.svc.identities, env.svc.matcher, env.svc.ledger, env.svc.dashboard,
		readOnlyDirectory{}, Options{})
	if err := ro.UpsertStudent(ctx, database.Student{RegNo: "X", FirstName: "Y"}); !errors.Is(err, ErrReadOnlyDirectory) {
		t.Errorf("expected ErrReadOnlyDirectory, got %v", err)
	}
}

type readOnlyDirectory struct{}

func (readOnlyDirectory) GetStudent(ctx context.Context, regNo string) (*database.Student, error) {
	return nil, nil
}

func (readOnlyDirectory) ListStudents(ctx context.Context) ([]database.Student, error) {
	return nil, nil
}

func TestGetDashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.EnrollEmbedding(ctx, "21BCE001", "", []float32{1, 0, 0})
	env.svc.ResolveAndMark(ctx, []float32{1, 0, 0}, "DBMS-A", "")

	data, err := env.svc.GetDashboard(ctx, "21BCE001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Overall.ClassesAttended != 1 || data.Overall.ClassesMissed != 9 || data.Overall.OverallPercentage != 10 {
		t.Errorf("unexpected overall %+v", data.Overall)
	}
}

func TestNormalizeSearch(t *testing.T) {
	tests := map[string]string{
		"Zoë  Núñez": "zoe nunez",
		"Jean-Luc":   "jean luc",
		"  ŠŤĚPÁN ":  "stepan",
		"21BCE001":   "21bce001",
	}
	for in, want := range tests {
		if got := NormalizeSearch(in); got != want {
			t.Errorf("NormalizeSearch(%q) = %q, want %q", in, got, want)
		}
	}
}
