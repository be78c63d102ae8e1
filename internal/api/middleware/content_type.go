package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/airlens/airlens/internal/api/models"
)

// ContentTypeJSON sets application/json unless the handler chain already
// chose a type, as the GeoJSON and problem writers do.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON answers 415 to a POST, PUT or PATCH whose declared body type is
// not JSON. Structured "+json" types are JSON; an undeclared body is allowed.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasBody(r.Method) && !acceptsAsJSON(r.Header.Get("Content-Type")) {
			models.NewUnsupportedMediaType(GetRequestID(r.Context()), "Content-Type must be application/json").
				WithInstance(r.URL.Path).
				Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

func acceptsAsJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		(strings.HasPrefix(mediaType, "application/") && strings.HasSuffix(mediaType, "+json"))
}
