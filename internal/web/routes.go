package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes(processor *pipeline.Processor, g *gallery.Gallery, directory *attendance.Directory) {
	statusHandler := handlers.NewStatusHandler(processor, g, directory)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/presence", statusHandler.Presence)
		r.Get("/events", statusHandler.Events)
		r.Get("/gallery", statusHandler.Gallery)
	})
}
