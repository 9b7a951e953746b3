package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
)

func TestAttendanceHandler_MarkEmbedding(t *testing.T) {
	svc, store := newTestService(t, nil)
	enroll(t, svc, "21BCE001", []float32{1, 0, 0})
	handler := NewAttendanceHandler(svc)

	body := MarkEmbeddingRequest{Embedding: []float32{0.9, 0.1, 0}, SessionName: "DBMS-A"}

	recorder := httptest.NewRecorder()
	handler.MarkEmbedding(recorder, jsonRequest(t, http.MethodPost, "/api/v1/attendance/mark-embedding", body))

	assertStatusCode(t, recorder, http.StatusOK)
	var result attendance.MarkResult
	parseJSONResponse(t, recorder, &result)
	if result.Status != attendance.StatusSuccess {
		t.Errorf("expected success, got %+v", result)
	}
	if result.Identity == nil || result.Identity.RegNo != "21BCE001" || result.Identity.Name != "Asha Rao" {
		t.Errorf("unexpected identity %+v", result.Identity)
	}

	// second mark on the same day
	recorder = httptest.NewRecorder()
	handler.MarkEmbedding(recorder, jsonRequest(t, http.MethodPost, "/api/v1/attendance/mark-embedding", body))
	assertStatusCode(t, recorder, http.StatusOK)
	parseJSONResponse(t, recorder, &result)
	if result.Status != attendance.StatusAlreadyMarked {
		t.Errorf("expected already_marked, got %s", result.Status)
	}

	if n := len(store.Records()); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestAttendanceHandler_MarkEmbedding_Outcomes(t *testing.T) {
	svc, _ := newTestService(t, nil)
	enroll(t, svc, "21BCE001", []float32{1, 0, 0})
	handler := NewAttendanceHandler(svc)

	tests := []struct {
		name          string
		body          any
		expectedCode  int
		expectedState attendance.Status
	}{
		{"not recognized", MarkEmbeddingRequest{Embedding: []float32{0, 1, 0}, SessionName: "DBMS-A"}, http.StatusOK, attendance.StatusNotRecognized},
		{"unknown session", MarkEmbeddingRequest{Embedding: []float32{1, 0, 0}, SessionName: "Nope"}, http.StatusOK, attendance.StatusError},
		{"wrong dimension", MarkEmbeddingRequest{Embedding: []float32{1, 0}, SessionName: "DBMS-A"}, http.StatusBadRequest, ""},
		{"missing session", MarkEmbeddingRequest{Embedding: []float32{1, 0, 0}}, http.StatusBadRequest, ""},
		{"missing embedding", MarkEmbeddingRequest{SessionName: "DBMS-A"}, http.StatusBadRequest, ""},
		{"invalid body", "not an object", http.StatusBadRequest, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.MarkEmbedding(recorder, jsonRequest(t, http.MethodPost, "/api/v1/attendance/mark-embedding", tc.body))

			assertStatusCode(t, recorder, tc.expectedCode)
			if tc.expectedState != "" {
				var result attendance.MarkResult
				parseJSONResponse(t, recorder, &result)
				if result.Status != tc.expectedState {
					t.Errorf("expected %s, got %s", tc.expectedState, result.Status)
				}
			}
		})
	}
}

func TestAttendanceHandler_Mark(t *testing.T) {
	svc, _ := newTestService(t, stubExtractor{"asha": {1, 0, 0}})
	enroll(t, svc, "21BCE001", []float32{1, 0, 0})
	handler := NewAttendanceHandler(svc)

	req := multipartRequest(t, "/api/v1/attendance/mark",
		map[string]string{"session_name": "DBMS-A", "mode": "offline"}, "image", []byte("asha"))
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result attendance.MarkResult
	parseJSONResponse(t, recorder, &result)
	if result.Status != attendance.StatusSuccess || result.Record == nil || result.Record.Mode != "offline" {
		t.Errorf("unexpected result %+v", result)
	}

	req = multipartRequest(t, "/api/v1/attendance/mark",
		map[string]string{"session_name": "DBMS-A"}, "image", []byte("empty wall"))
	recorder = httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	parseJSONResponse(t, recorder, &result)
	if result.Status != attendance.StatusNoFace {
		t.Errorf("expected no_face, got %s", result.Status)
	}

	req = multipartRequest(t, "/api/v1/attendance/mark", map[string]string{"session_name": "DBMS-A"}, "image")
	recorder = httptest.NewRecorder()
	handler.Mark(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "no image provided")
}

func TestAttendanceHandler_Mark_NoExtractor(t *testing.T) {
	svc, _ := newTestService(t, nil)
	handler := NewAttendanceHandler(svc)

	req := multipartRequest(t, "/api/v1/attendance/mark", map[string]string{"session_name": "DBMS-A"}, "image", []byte("x"))
	recorder := httptest.NewRecorder()
	handler.Mark(recorder, req)

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}

func TestAttendanceHandler_ConcurrentMarks(t *testing.T) {
	svc, store := newTestService(t, nil)
	enroll(t, svc, "21BCE001", []float32{1, 0, 0})
	handler := NewAttendanceHandler(svc)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder := httptest.NewRecorder()
			body := MarkEmbeddingRequest{Embedding: []float32{1, 0, 0}, SessionName: "DBMS-A"}
			handler.MarkEmbedding(recorder, jsonRequest(t, http.MethodPost, "/api/v1/attendance/mark-embedding", body))
			if recorder.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", recorder.Code)
			}
		}()
	}
	wg.Wait()

	if n := len(store.Records()); n != 1 {
		t.Errorf("expected exactly 1 record, got %d", n)
	}
}
