package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/constants"
)

// IdentitiesHandler manages enrolled face identities.
type IdentitiesHandler struct {
	service *attendance.Service
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(svc *attendance.Service) *IdentitiesHandler {
	return &IdentitiesHandler{service: svc}
}

// PutIdentityRequest is the body of PUT /identities/{regNo}.
type PutIdentityRequest struct {
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
}

// SimilarRequest is the body of POST /identities/similar.
type SimilarRequest struct {
	Embedding []float32 `json:"embedding"`
	Limit     int       `json:"limit"`
}

// List returns all enrolled identities.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	identities := h.service.ListIdentities()
	respondJSON(w, http.StatusOK, map[string]any{
		"count":      len(identities),
		"identities": identities,
	})
}

// Put stores a precomputed embedding for a student.
func (h *IdentitiesHandler) Put(w http.ResponseWriter, r *http.Request) {
	regNo := chi.URLParam(r, "regNo")

	var req PutIdentityRequest
	if !decodeJSON(w, r, constants.MaxUploadSize, &req) {
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	result, err := h.service.EnrollEmbedding(r.Context(), regNo, req.Name, req.Embedding)
	if err != nil {
		respondServiceError(w, "enroll identity", err)
		return
	}
	log.Printf("Enrolled %s (%d conflicts)", sanitizeForLog(regNo), len(result.Conflicts))
	respondJSON(w, http.StatusOK, result)
}

// Enroll extracts embeddings from uploaded images and stores their mean.
func (h *IdentitiesHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	if !h.service.HasExtractor() {
		respondError(w, http.StatusServiceUnavailable, "embedding extractor is not configured")
		return
	}
	regNo := chi.URLParam(r, "regNo")

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no images provided")
		return
	}
	if len(files) > constants.MaxEnrollImages {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images are allowed", constants.MaxEnrollImages))
		return
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		images = append(images, data)
	}

	result, err := h.service.Enroll(r.Context(), regNo, r.FormValue("name"), images)
	if err != nil {
		respondServiceError(w, "enroll identity", err)
		return
	}
	log.Printf("Enrolled %s from %d images (%d skipped)", sanitizeForLog(regNo), result.Processed, result.Skipped)
	respondJSON(w, http.StatusOK, result)
}

// Delete removes an enrolled identity.
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	regNo := chi.URLParam(r, "regNo")

	existed, err := h.service.DeleteIdentity(r.Context(), regNo)
	if err != nil {
		respondServiceError(w, "delete identity", err)
		return
	}
	if !existed {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"deleted":             true,
		"registration_number": regNo,
	})
}

// Reload reloads the identities from storage.
func (h *IdentitiesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.ReloadIdentities(r.Context())
	if err != nil {
		respondServiceError(w, "reload identities", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// Similar returns the enrolled identities closest to an embedding.
func (h *IdentitiesHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if !decodeJSON(w, r, constants.MaxUploadSize, &req) {
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}
	if req.Limit > constants.MaxSimilarLimit {
		req.Limit = constants.MaxSimilarLimit
	}

	similar, err := h.service.SimilarIdentities(req.Embedding, req.Limit)
	if err != nil {
		respondServiceError(w, "find similar identities", err)
		return
	}
	if similar == nil {
		similar = []attendance.Conflict{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"threshold": h.service.Threshold(),
		"results":   similar,
	})
}
