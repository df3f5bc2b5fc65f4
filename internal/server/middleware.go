package server

import (
	"net/http"
	"os"
)

// authorizeAdmin guards the regeneration action with an API key from the
// ADMIN_API_KEY environment variable. It writes the error response itself
// and returns false when the caller is not authorized.
func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	adminAPIKey := os.Getenv("ADMIN_API_KEY")

	// With no key configured, admin actions are disabled outright.
	if adminAPIKey == "" {
		s.log.Warn("Admin action requested but ADMIN_API_KEY not set")
		s.respondError(w, http.StatusForbidden, "Admin actions are disabled")
		return false
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.respondError(w, http.StatusUnauthorized, "Missing Authorization header")
		return false
	}

	if authHeader != "Bearer "+adminAPIKey {
		s.log.Warn("Invalid admin API key attempt", "remote_addr", r.RemoteAddr)
		s.respondError(w, http.StatusUnauthorized, "Invalid API key")
		return false
	}

	return true
}

// securityHeaders adds security headers to all responses
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Exported documents must stay self-contained: no external script
		// execution even if one is opened in place.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'; img-src 'self' data:;")

		next.ServeHTTP(w, r)
	})
}
