package models

import (
	"encoding/json"
	"net/http"
)

// Problem represents an RFC7807 error response.
// This is used for all API error responses with Content-Type: application/problem+json.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// Instance is a URI reference that identifies the specific occurrence.
	Instance string `json:"instance,omitempty"`

	// TraceID is the request trace identifier for debugging.
	TraceID string `json:"traceId"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`

	// Error is the short client-facing message; map clients display it as is.
	Error string `json:"error,omitempty"`

	// Details carries upstream diagnostics for 5xx responses.
	Details string `json:"details,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemType constants for standard error types.
const (
	ProblemTypeValidation      = "https://api.airlens.dev/problems/validation-error"
	ProblemTypeUnauthorized    = "https://api.airlens.dev/problems/unauthorized"
	ProblemTypeForbidden       = "https://api.airlens.dev/problems/forbidden"
	ProblemTypeNotFound        = "https://api.airlens.dev/problems/not-found"
	ProblemTypeSuperseded      = "https://api.airlens.dev/problems/superseded"
	ProblemTypeTooManyRequests = "https://api.airlens.dev/problems/too-many-requests"
	ProblemTypeUnsupportedType = "https://api.airlens.dev/problems/unsupported-media-type"
	ProblemTypeTLSRequired     = "https://api.airlens.dev/problems/tls-required"
	ProblemTypeInternal        = "https://api.airlens.dev/problems/internal-error"
	ProblemTypeUpstream        = "https://api.airlens.dev/problems/upstream-error"
	ProblemTypeNotConfigured   = "https://api.airlens.dev/problems/not-configured"
)

// Kind fixes the type, title and status shared by every problem of one sort.
type Kind struct {
	Type   string
	Title  string
	Status int
}

// Problem kinds returned by the API.
var (
	KindValidation      = Kind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	KindUnauthorized    = Kind{ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized}
	KindForbidden       = Kind{ProblemTypeForbidden, "Forbidden", http.StatusForbidden}
	KindTLSRequired     = Kind{ProblemTypeTLSRequired, "TLS required", http.StatusForbidden}
	KindNotFound        = Kind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	KindSuperseded      = Kind{ProblemTypeSuperseded, "Superseded", http.StatusConflict}
	KindUnsupportedType = Kind{ProblemTypeUnsupportedType, "Unsupported media type", http.StatusUnsupportedMediaType}
	KindTooManyRequests = Kind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	KindInternal        = Kind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	KindUpstream        = Kind{ProblemTypeUpstream, "Upstream error", http.StatusInternalServerError}
	KindNotConfigured   = Kind{ProblemTypeNotConfigured, "Not configured", http.StatusInternalServerError}
)

// New creates a problem of this kind. The detail doubles as the
// client-facing error member, which the dashboard displays as is.
func (k Kind) New(traceID, detail string) *Problem {
	p := NewProblem(k.Type, k.Title, k.Status, traceID)
	p.Detail = detail
	p.Error = detail
	return p
}

// NewProblem creates a problem with no detail.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// Write sends the problem as application/problem+json and echoes the trace
// id in X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := KindValidation.New(traceID, detail)
	p.Errors = errors
	return p
}

func NewUnauthorized(traceID, detail string) *Problem {
	return KindUnauthorized.New(traceID, detail)
}

func NewForbidden(traceID, detail string) *Problem {
	return KindForbidden.New(traceID, detail)
}

func NewTLSRequired(traceID string) *Problem {
	return KindTLSRequired.New(traceID, "This endpoint requires HTTPS")
}

func NewNotFound(traceID, detail string) *Problem {
	return KindNotFound.New(traceID, detail)
}

// NewSuperseded reports a panel selection replaced by a newer one in the
// same session.
func NewSuperseded(traceID, detail string) *Problem {
	return KindSuperseded.New(traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return KindTooManyRequests.New(traceID, detail)
}

func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return KindUnsupportedType.New(traceID, detail)
}

// NewInternalError keeps detail for logs and returns a generic client error.
func NewInternalError(traceID, detail string) *Problem {
	p := KindInternal.New(traceID, detail)
	p.Error = "Internal server error."
	return p
}

// NewUpstreamError reports a failed upstream call. message is the
// client-facing error and details the upstream diagnostics.
func NewUpstreamError(traceID, message, details string) *Problem {
	p := KindUpstream.New(traceID, message)
	p.Details = details
	return p
}

// NewNotConfigured reports a missing server credential.
func NewNotConfigured(traceID, message string) *Problem {
	return KindNotConfigured.New(traceID, message)
}
