package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/api/models"
)

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name      string
		problem   *models.Problem
		typ       string
		status    int
		wantError string
	}{
		{"bad request", models.NewBadRequest("req_1", "bbox must have four values", nil), models.ProblemTypeValidation, http.StatusBadRequest, "bbox must have four values"},
		{"unauthorized", models.NewUnauthorized("req_1", "access token has expired"), models.ProblemTypeUnauthorized, http.StatusUnauthorized, "access token has expired"},
		{"forbidden", models.NewForbidden("req_1", "admin role required"), models.ProblemTypeForbidden, http.StatusForbidden, "admin role required"},
		{"tls required", models.NewTLSRequired("req_1"), models.ProblemTypeTLSRequired, http.StatusForbidden, "This endpoint requires HTTPS"},
		{"not found", models.NewNotFound("req_1", "no override for policy.weather"), models.ProblemTypeNotFound, http.StatusNotFound, "no override for policy.weather"},
		{"superseded", models.NewSuperseded("req_1", "selection superseded"), models.ProblemTypeSuperseded, http.StatusConflict, "selection superseded"},
		{"too many requests", models.NewTooManyRequests("req_1", "slow down"), models.ProblemTypeTooManyRequests, http.StatusTooManyRequests, "slow down"},
		{"unsupported media type", models.NewUnsupportedMediaType("req_1", "expected application/json"), models.ProblemTypeUnsupportedType, http.StatusUnsupportedMediaType, "expected application/json"},
		{"internal", models.NewInternalError("req_1", "nil pointer in panel encoder"), models.ProblemTypeInternal, http.StatusInternalServerError, "Internal server error."},
		{"not configured", models.NewNotConfigured("req_1", "Server is not configured with an AirNow API key."), models.ProblemTypeNotConfigured, http.StatusInternalServerError, "Server is not configured with an AirNow API key."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.NotEmpty(t, tt.problem.Title)
			assert.NotEmpty(t, tt.problem.Detail)
			assert.Equal(t, tt.wantError, tt.problem.Error)
			assert.Equal(t, "req_1", tt.problem.TraceID)
			assert.Empty(t, tt.problem.Details)
		})
	}
}

func TestKind_New(t *testing.T) {
	p := models.KindUpstream.New("req_9", "Failed to fetch NO2 data from TEMPO.")

	assert.Equal(t, models.ProblemTypeUpstream, p.Type)
	assert.Equal(t, "Upstream error", p.Title)
	assert.Equal(t, http.StatusInternalServerError, p.Status)
	assert.Equal(t, p.Detail, p.Error)
}

func TestProblem_WriteUpstreamError(t *testing.T) {
	p := models.NewUpstreamError("req_test123", "Failed to fetch weather data from Google.", "API key not valid").
		WithInstance("/v1/weather")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch weather data from Google.", body["error"])
	assert.Equal(t, "API key not valid", body["details"])
	assert.Equal(t, "/v1/weather", body["instance"])
	assert.Equal(t, "req_test123", body["traceId"])
	assert.NotContains(t, body, "errors")
}

func TestProblem_WriteFieldErrors(t *testing.T) {
	p := models.NewBadRequest("req_test123", "Invalid query parameters.", []models.FieldError{
		{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"},
		{Field: "lon", Message: "required", Code: "REQUIRED"},
	})

	w := httptest.NewRecorder()
	p.Write(w)

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Errors, 2)
	assert.Equal(t, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"}, result.Errors[0])
	assert.Equal(t, "lon", result.Errors[1].Field)
	assert.Empty(t, result.Instance)
}
