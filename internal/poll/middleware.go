package poll

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// securityHeaders sets the relay's fixed header set on every poll
// response. CORS itself is handled separately by go-chi/cors so its
// OPTIONS preflight short-circuit isn't duplicated here.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// requestID stamps every response with an X-Request-Id, minted fresh per
// request. This deliberately does not use chi's middleware.RealIP: that
// middleware would rewrite r.RemoteAddr using its own forwarded-header
// heuristics, which would race with internal/clientkey.Resolve's own
// trusted-proxy-count algorithm over the same header.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware builds the go-chi/cors handler from the configured
// allowed origin, including the bare OPTIONS-preflight 204 response and
// the allow-listed request headers.
func corsMiddleware(allowedOrigin string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Delete-Token"},
		MaxAge:         300,
	})
}
