package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the REST surface plus the realtime socket.
// wsHandler may be nil in handler tests that only exercise REST.
func SetupRoutes(h *Handlers, wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()

	r.Route("/api/rooms", func(r chi.Router) {
		r.Get("/", h.ListRooms)
		r.Post("/", h.CreateRoom)
		r.Post("/{roomID}/join", h.JoinRoom)
		r.Delete("/{roomID}", h.DeleteRoom)
	})

	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}
	r.Get("/healthz", Healthz)
	return r
}
