// Package middleware provides HTTP middleware for the AirLens API.
package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/airlens/airlens/internal/api/models"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-Id"

	// SessionIDHeader carries the dashboard's panel session id.
	SessionIDHeader = "X-Session-Id"
)

type (
	requestIDKey struct{}
	sessionIDKey struct{}
)

// clientIDPattern restricts ids accepted from clients so they are safe to log
// and echo back.
var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID propagates a well-formed X-Request-Id from the client or
// generates a new "req_" id. The id is stored in the context and echoed in
// the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if !clientIDPattern.MatchString(requestID) {
			requestID = "req_" + uuid.New().String()[:22]
		}

		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Session stores the optional X-Session-Id header in the context. Requests
// without the header pass through; a malformed id is rejected with 400.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionIDHeader)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !clientIDPattern.MatchString(sessionID) {
			models.NewBadRequest(GetRequestID(r.Context()), `Invalid "X-Session-Id" header.`, nil).
				WithInstance(r.URL.Path).
				Write(w)
			return
		}

		ctx := context.WithValue(r.Context(), sessionIDKey{}, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID returns the panel session id, or "" when the request has none.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
