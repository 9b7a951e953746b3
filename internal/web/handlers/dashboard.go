package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/attendance"
)

// DashboardHandler serves per-student attendance dashboards.
type DashboardHandler struct {
	service *attendance.Service
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(svc *attendance.Service) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Get returns the dashboard of the student in the URL.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	regNo := chi.URLParam(r, "regNo")
	if regNo == "" {
		respondError(w, http.StatusBadRequest, "registration number is required")
		return
	}

	data, err := h.service.GetDashboard(r.Context(), regNo)
	if err != nil {
		respondServiceError(w, "compute dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, data)
}
