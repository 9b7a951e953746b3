package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the error taxonomy to an HTTP status code.
func statusForError(err error) int {
	switch {
	case errors.Is(err, database.ErrInvalidInput),
		errors.Is(err, database.ErrEmbeddingDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, database.ErrUnknownIdentity):
		return http.StatusNotFound
	case errors.Is(err, database.ErrDuplicateSession),
		errors.Is(err, database.ErrNoSessionsDefined),
		errors.Is(err, attendance.ErrReadOnlyDirectory):
		return http.StatusConflict
	case errors.Is(err, database.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity
	case database.IsTransient(err),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondServiceError logs err and sends it with the mapped status code.
// Internal errors are not echoed to the client.
func respondServiceError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s failed: %v", op, err)
	}
	if status == http.StatusInternalServerError {
		respondError(w, status, op+" failed")
		return
	}
	respondError(w, status, err.Error())
}

// decodeJSON decodes the request body into v, limited to maxBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
