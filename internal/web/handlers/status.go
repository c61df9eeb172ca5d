package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

// StatusHandler serves the live pipeline state: who is tracked, what
// happened recently and what the gallery looks like.
type StatusHandler struct {
	processor *pipeline.Processor
	gallery   *gallery.Gallery
	directory *attendance.Directory
}

func NewStatusHandler(processor *pipeline.Processor, g *gallery.Gallery, directory *attendance.Directory) *StatusHandler {
	return &StatusHandler{
		processor: processor,
		gallery:   g,
		directory: directory,
	}
}

// PresenceResponse lists all currently tracked entities.
type PresenceResponse struct {
	Entities []pipeline.EntityView `json:"entities"`
}

// Presence handles GET /api/v1/presence.
func (h *StatusHandler) Presence(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, PresenceResponse{
		Entities: h.processor.Presence(),
	})
}

// EventsResponse lists recent confirmed attendance events, newest last.
type EventsResponse struct {
	Events []pipeline.Event `json:"events"`
}

// Events handles GET /api/v1/events. The optional limit query parameter
// caps the number of returned events.
func (h *StatusHandler) Events(w http.ResponseWriter, r *http.Request) {
	events := h.processor.RecentEvents()

	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if limit < len(events) {
			events = events[len(events)-limit:]
		}
	}

	respondJSON(w, http.StatusOK, EventsResponse{Events: events})
}

// GalleryResponse describes the loaded enrollment gallery.
type GalleryResponse struct {
	Labels          []string `json:"labels"`
	People          int      `json:"people"`
	DirectoryPeople int      `json:"directory_people"`
}

// Gallery handles GET /api/v1/gallery.
func (h *StatusHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GalleryResponse{
		Labels:          h.gallery.Labels(),
		People:          h.gallery.Size(),
		DirectoryPeople: h.directory.Size(),
	})
}
