package middleware

import (
	"net/http"

	"github.com/airlens/airlens/internal/api/models"
)

// SecurityHeaders adds the response headers every API answer carries. The
// API serves JSON to the map dashboard only, so nothing may be framed or
// executed in a browser context.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")

		next.ServeHTTP(w, r)
	})
}

// RequireTLS rejects plain-HTTP requests when enabled. Behind Cloud Run or a
// load balancer the original scheme arrives in X-Forwarded-Proto; requests
// without that header are let through.
func RequireTLS(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" && proto != "https" {
				models.NewTLSRequired(GetRequestID(r.Context())).WithInstance(r.URL.Path).Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
