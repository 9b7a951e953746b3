package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facial-attendance/internal/web/handlers"
	"github.com/kozaktomas/facial-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	configHandler := handlers.NewConfigHandler(s.config, s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	dashboardHandler := handlers.NewDashboardHandler(s.service)
	sessionsHandler := handlers.NewSessionsHandler(s.service)
	identitiesHandler := handlers.NewIdentitiesHandler(s.service)
	studentsHandler := handlers.NewStudentsHandler(s.service)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)
		r.Get("/config", configHandler.Get)

		// Kiosk and student endpoints
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Post("/attendance/mark-embedding", attendanceHandler.MarkEmbedding)
		r.Get("/dashboard/{regNo}", dashboardHandler.Get)
		r.Get("/sessions", sessionsHandler.List)

		// Faculty and admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(s.config.Web.APIKey))

			r.Post("/sessions", sessionsHandler.Create)
			r.Get("/sessions/{name}/attendance", sessionsHandler.Attendance)

			r.Get("/identities", identitiesHandler.List)
			r.Post("/identities/reload", identitiesHandler.Reload)
			r.Post("/identities/similar", identitiesHandler.Similar)
			r.Put("/identities/{regNo}", identitiesHandler.Put)
			r.Post("/identities/{regNo}/enroll", identitiesHandler.Enroll)
			r.Delete("/identities/{regNo}", identitiesHandler.Delete)

			r.Get("/students", studentsHandler.List)
			r.Put("/students/{regNo}", studentsHandler.Put)
		})
	})
}
