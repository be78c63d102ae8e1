package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/auth"
)

// tokenSubjects authorizes tokens by looking them up in a fixed map.
type tokenSubjects map[string]string

func (m tokenSubjects) AuthorizeAdmin(token string) (string, error) {
	if subject, ok := m[token]; ok {
		return subject, nil
	}
	return "", auth.ErrInvalidAccessToken
}

func send(h http.Handler, remoteAddr, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/panel", http.NoBody)
	req.RemoteAddr = remoteAddr
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}

	type call struct {
		addr string
		want int
	}
	tests := []struct {
		name  string
		calls []call
	}{
		{
			name: "within budget",
			calls: []call{
				{"198.51.100.7:4000", http.StatusOK},
				{"198.51.100.7:4001", http.StatusOK},
			},
		},
		{
			name: "third call from one address is rejected",
			calls: []call{
				{"198.51.100.7:4000", http.StatusOK},
				{"198.51.100.7:4000", http.StatusOK},
				{"198.51.100.7:4000", http.StatusTooManyRequests},
			},
		},
		{
			name: "addresses have separate budgets",
			calls: []call{
				{"198.51.100.7:4000", http.StatusOK},
				{"198.51.100.7:4000", http.StatusOK},
				{"198.51.100.7:4000", http.StatusTooManyRequests},
				{"203.0.113.9:4000", http.StatusOK},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.RateLimitByIP(cfg)(okHandler())
			for i, c := range tt.calls {
				assert.Equal(t, c.want, send(h, c.addr, "").Code, "call %d", i)
			}
		})
	}
}

func TestRateLimitBySubject_KeysOnAdminSubject(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	verifier := tokenSubjects{"tok-a": "ops-alice", "tok-b": "ops-bob"}
	h := middleware.Auth(verifier)(middleware.RateLimitBySubject(cfg)(okHandler()))

	assert.Equal(t, http.StatusOK, send(h, "198.51.100.7:4000", "tok-a").Code)
	// Same subject from a new address shares the budget.
	assert.Equal(t, http.StatusTooManyRequests, send(h, "203.0.113.9:4000", "tok-a").Code)
	// Another subject behind the first address has its own.
	assert.Equal(t, http.StatusOK, send(h, "198.51.100.7:4000", "tok-b").Code)
}

func TestRateLimitBySubject_FallsBackToAddress(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	h := middleware.RateLimitBySubject(cfg)(okHandler())

	assert.Equal(t, http.StatusOK, send(h, "198.51.100.7:4000", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.7:4000", "").Code)
	assert.Equal(t, http.StatusOK, send(h, "203.0.113.9:4000", "").Code)
}

func TestRateLimit_ProblemResponse(t *testing.T) {
	tests := []struct {
		name       string
		window     time.Duration
		retryAfter string
	}{
		{"minute window", time.Minute, "60"},
		{"fractional window rounds up", 1500 * time.Millisecond, "2"},
		{"hour window", time.Hour, "3600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: tt.window}
			h := middleware.RequestID(middleware.RateLimitByIP(cfg)(okHandler()))

			require.Equal(t, http.StatusOK, send(h, "198.51.100.7:4000", "").Code)
			rec := send(h, "198.51.100.7:4000", "")

			require.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.retryAfter, rec.Header().Get("Retry-After"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["type"], "too-many-requests")
			assert.Equal(t, "/v1/panel", body["instance"])
			assert.Contains(t, body["detail"], "Rate limit of 1 requests per")
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, rec.Header().Get("X-Request-Id"), body["traceId"])
		})
	}
}

func TestRouteClassBudgets(t *testing.T) {
	tests := []struct {
		name string
		cfg  middleware.RateLimitConfig
		want int
	}{
		{"admin", middleware.AdminRateLimit, 10},
		{"expensive", middleware.ExpensiveRateLimit, 30},
		{"standard", middleware.StandardRateLimit, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.RequestLimit)
			assert.Equal(t, time.Minute, tt.cfg.WindowLength)
		})
	}
}
