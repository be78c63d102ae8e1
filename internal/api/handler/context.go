package handler

import (
	"context"

	"github.com/airlens/airlens/internal/api/middleware"
)

// GetSubject retrieves the authenticated admin subject from the context.
// This is a convenience wrapper around middleware.GetSubject.
func GetSubject(ctx context.Context) string {
	return middleware.GetSubject(ctx)
}

// GetSessionID returns the validated panel session id, or "" when the request
// carries none.
func GetSessionID(ctx context.Context) string {
	return middleware.GetSessionID(ctx)
}
