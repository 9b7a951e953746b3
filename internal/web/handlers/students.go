package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/attendance"
	"github.com/kozaktomas/facial-attendance/internal/database"
)

const maxStudentBody = 64 << 10

// StudentsHandler serves the student directory.
type StudentsHandler struct {
	service *attendance.Service
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(svc *attendance.Service) *StudentsHandler {
	return &StudentsHandler{service: svc}
}

// List returns students, optionally filtered by ?enrolled= and ?q=.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := attendance.StudentFilter{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("enrolled"); v != "" {
		enrolled, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "enrolled must be true or false")
			return
		}
		filter.Enrolled = &enrolled
	}

	students, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		respondServiceError(w, "list students", err)
		return
	}
	respondJSON(w, http.StatusOK, students)
}

// Put adds or updates the student in the URL.
func (h *StudentsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var student database.Student
	if !decodeJSON(w, r, maxStudentBody, &student) {
		return
	}
	student.RegNo = chi.URLParam(r, "regNo")
	student.Enrolled = false

	if err := h.service.UpsertStudent(r.Context(), student); err != nil {
		respondServiceError(w, "save student", err)
		return
	}
	respondJSON(w, http.StatusOK, student)
}
