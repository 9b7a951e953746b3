package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/constants"
)

// AttendanceHandler handles attendance marking endpoints.
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// MarkEmbeddingRequest is the body of POST /attendance/mark-embedding.
type MarkEmbeddingRequest struct {
	Embedding   []float32 `json:"embedding"`
	SessionName string    `json:"session_name"`
	Mode        string    `json:"mode"`
}

// readFormFile reads an uploaded file into memory.
func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s", fh.Filename)
	}
	return data, nil
}

// Mark resolves the face in an uploaded image and marks the student present.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if !h.service.HasExtractor() {
		respondError(w, http.StatusServiceUnavailable, "embedding extractor is not configured")
		return
	}
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	sessionName := r.FormValue("session_name")
	if sessionName == "" {
		respondError(w, http.StatusBadRequest, "session_name is required")
		return
	}

	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no image provided")
		return
	}
	image, err := readFormFile(files[0])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ResolveImageAndMark(r.Context(), image, sessionName, r.FormValue("mode"))
	if err != nil {
		respondServiceError(w, "mark attendance", err)
		return
	}
	logMarkResult(sessionName, result)
	respondJSON(w, http.StatusOK, result)
}

// MarkEmbedding marks attendance for an already computed face embedding.
func (h *AttendanceHandler) MarkEmbedding(w http.ResponseWriter, r *http.Request) {
	var req MarkEmbeddingRequest
	if !decodeJSON(w, r, constants.MaxUploadSize, &req) {
		return
	}
	if req.SessionName == "" {
		respondError(w, http.StatusBadRequest, "session_name is required")
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	result, err := h.service.ResolveAndMark(r.Context(), req.Embedding, req.SessionName, req.Mode)
	if err != nil {
		respondServiceError(w, "mark attendance", err)
		return
	}
	logMarkResult(req.SessionName, result)
	respondJSON(w, http.StatusOK, result)
}

func logMarkResult(sessionName string, result *attendance.MarkResult) {
	if result.Identity != nil {
		log.Printf("Attendance %s: %s %s (similarity %.3f)", sanitizeForLog(sessionName),
			result.Identity.RegNo, result.Status, result.Identity.Similarity)
		return
	}
	log.Printf("Attendance %s: %s", sanitizeForLog(sessionName), result.Status)
}
