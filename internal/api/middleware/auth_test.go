package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newSigner(t *testing.T) *auth.JWTService {
	t.Helper()
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "middleware-test-signing-key",
		Issuer:     "https://api.airlens.dev",
		Audience:   "airlens-admin",
	})
}

func mint(t *testing.T, signer *auth.JWTService, subject, role string) string {
	t.Helper()
	token, _, err := signer.GenerateAccessToken(subject, role, time.Minute)
	require.NoError(t, err)
	return token
}

func authorize(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(rec, req)
	return rec
}

func TestAuth_Rejections(t *testing.T) {
	signer := newSigner(t)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://api.airlens.dev",
			Subject:   "ops",
			Audience:  jwt.ClaimStrings{"airlens-admin"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Role: auth.RoleAdmin,
	}).SignedString([]byte("middleware-test-signing-key"))
	require.NoError(t, err)

	foreign := mint(t, auth.NewJWTService(auth.JWTConfig{
		SigningKey: "another-key",
		Issuer:     "https://api.airlens.dev",
		Audience:   "airlens-admin",
	}), "ops", auth.RoleAdmin)

	tests := []struct {
		name      string
		header    string
		status    int
		detail    string
		challenge string
	}{
		{"no header", "", http.StatusUnauthorized, "missing authorization header", `Bearer realm="airlens"`},
		{"basic scheme", "Basic b3BzOnNlY3JldA==", http.StatusUnauthorized, "authorization scheme must be Bearer", `Bearer realm="airlens"`},
		{"scheme only", "Bearer", http.StatusUnauthorized, "authorization scheme must be Bearer", `Bearer realm="airlens"`},
		{"blank token", "Bearer   ", http.StatusUnauthorized, "missing bearer token", `Bearer realm="airlens"`},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "invalid access token", `Bearer realm="airlens", error="invalid_token"`},
		{"wrong key", "Bearer " + foreign, http.StatusUnauthorized, "invalid access token", `Bearer realm="airlens", error="invalid_token"`},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "access token has expired", `error_description="access token has expired"`},
		{"viewer role", "Bearer " + mint(t, signer, "analyst", "viewer"), http.StatusForbidden, "admin role required", ""},
	}

	handler := middleware.Auth(signer)(okHandler())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := authorize(handler, tt.header)

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			if tt.challenge == "" {
				assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
			} else {
				assert.Contains(t, rec.Header().Get("WWW-Authenticate"), tt.challenge)
			}

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.detail, problem.Detail)
			assert.Equal(t, "/v1/admin/feature-flags", problem.Instance)
			assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), problem.TraceID)
		})
	}
}

func TestAuth_DisabledWithoutSigningKey(t *testing.T) {
	handler := middleware.Auth(auth.NewJWTService(auth.JWTConfig{}))(okHandler())

	rec := authorize(handler, "Bearer anything")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin access is disabled")
}

func TestAuth_AdmitsAdmin(t *testing.T) {
	signer := newSigner(t)
	token := mint(t, signer, "ops@airlens.dev", auth.RoleAdmin)

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		t.Run(scheme, func(t *testing.T) {
			var subject string
			handler := middleware.Auth(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = middleware.GetSubject(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			rec := authorize(handler, scheme+" "+token)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, "ops@airlens.dev", subject)
		})
	}
}

func TestGetSubject_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	assert.Empty(t, middleware.GetSubject(req.Context()))
}
