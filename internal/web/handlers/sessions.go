package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

const maxSessionBody = 64 << 10

// SessionsHandler handles session definitions and their attendance.
type SessionsHandler struct {
	service *attendance.Service
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(svc *attendance.Service) *SessionsHandler {
	return &SessionsHandler{service: svc}
}

// Create stores a new session definition.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req database.Session
	if !decodeJSON(w, r, maxSessionBody, &req) {
		return
	}

	session, err := h.service.CreateSession(r.Context(), req)
	if err != nil {
		respondServiceError(w, "create session", err)
		return
	}
	log.Printf("Created session %s (%s)", sanitizeForLog(session.SessionName), sanitizeForLog(session.Subject))
	respondJSON(w, http.StatusCreated, session)
}

// List returns all session definitions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, "list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []database.Session{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// Attendance lists who was present in a session on the date given by ?date=.
func (h *SessionsHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	date := r.URL.Query().Get("date")
	if date == "" {
		respondError(w, http.StatusBadRequest, "date is required")
		return
	}

	records, err := h.service.ListSessionAttendance(r.Context(), name, date)
	if err != nil {
		respondServiceError(w, "list session attendance", err)
		return
	}
	if records == nil {
		records = []database.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_name": name,
		"date":         date,
		"count":        len(records),
		"records":      records,
	})
}
