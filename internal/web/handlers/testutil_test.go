package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/config"
	"github.com/kozaktomas/facial-attendance/internal/dashboard"
	"github.com/kozaktomas/facial-attendance/internal/database"
	"github.com/kozaktomas/facial-attendance/internal/database/mock"
	"github.com/kozaktomas/facial-attendance/internal/ledger"
	"github.com/kozaktomas/facial-attendance/internal/recognition"
)

// stubExtractor maps image contents to embeddings
type stubExtractor map[string][]float32

func (s stubExtractor) ExtractEmbedding(ctx context.Context, image []byte) ([]float32, error) {
	emb, ok := s[string(image)]
	if !ok {
		return nil, database.ErrNoFaceDetected
	}
	return emb, nil
}

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Recognition.EmbeddingDim = 3
	cfg.Ledger.Timezone = "UTC"
	return &cfg
}

// newTestService wires a service over an in-memory store with 3-dimensional embeddings
func newTestService(t *testing.T, extractor attendance.Extractor) (*attendance.Service, *mock.Store) {
	t.Helper()
	store := mock.NewStore()
	store.AddStudent(database.Student{RegNo: "21BCE001", FirstName: "Asha", LastName: "Rao"})
	store.AddStudent(database.Student{RegNo: "21BCE002", FirstName: "Ravi", LastName: "Kumar"})
	store.AddSession(database.Session{SessionName: "DBMS-A", Subject: "DBMS", TotalClasses: 10})

	identities := recognition.NewStore(store, 3, 0)
	matcher, err := recognition.NewMatcher(0.6)
	if err != nil {
		t.Fatalf("failed to create matcher: %v", err)
	}
	l := ledger.New(store, store, store, ledger.Options{Location: time.UTC, DefaultMode: "in-person"})
	agg := dashboard.NewAggregator(store, store, store, 0)

	opts := attendance.Options{
		Now: func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}
	if extractor != nil {
		opts.Extractor = extractor
	}
	return attendance.NewService(identities, matcher, l, agg, store, opts), store
}

// enroll stores an embedding through the service
func enroll(t *testing.T, svc *attendance.Service, regNo string, embedding []float32) {
	t.Helper()
	if _, err := svc.EnrollEmbedding(context.Background(), regNo, "", embedding); err != nil {
		t.Fatalf("failed to enroll %s: %v", regNo, err)
	}
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a multipart request with form fields and files under fileField
func multipartRequest(t *testing.T, path string, fields map[string]string, fileField string, files ...[]byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	for i, data := range files {
		part, err := writer.CreateFormFile(fileField, "face"+string(rune('a'+i))+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
