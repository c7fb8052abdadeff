package poll

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the stateless poll surface. It deliberately omits
// chi's middleware.RealIP (see middleware.go) and mounts health outside
// of any rate-limited group, since a probe must never itself be
// rate-limited or count against a client's windows.
func NewRouter(h *Handler, corsOrigin string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID)
	r.Use(securityHeaders)
	r.Use(corsMiddleware(corsOrigin))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", h.Health)

	r.Route("/rooms", func(rr chi.Router) {
		rr.Post("/", h.CreateRoom)

		rr.Route("/{hash}", func(rh chi.Router) {
			rh.Post("/join", h.JoinRoom)
			rh.Post("/send", h.SendMessage)
			rh.Get("/poll", h.PollRoom)
			rh.Post("/leave", h.LeaveRoom)
			rh.Delete("/", h.DeleteRoom)
		})
	})

	return r
}
