package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/auth"
)

type subjectKey struct{}

// AdminAuthorizer checks an admin bearer token and returns its subject.
type AdminAuthorizer interface {
	AuthorizeAdmin(token string) (string, error)
}

var (
	errNoCredentials = errors.New("missing authorization header")
	errNotBearer     = errors.New("authorization scheme must be Bearer")
	errEmptyToken    = errors.New("missing bearer token")
)

// Auth admits only requests carrying an admin bearer token and stores the
// token subject in the context. Rejections follow RFC 6750: 401 with a
// WWW-Authenticate challenge, or 403 for a valid token without the role.
func Auth(authorizer AdminAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err == nil {
				var subject string
				if subject, err = authorizer.AuthorizeAdmin(token); err == nil {
					ctx := context.WithValue(r.Context(), subjectKey{}, subject)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			reject(w, r, err)
		})
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyToken
	}
	return token, nil
}

func reject(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	if errors.Is(err, auth.ErrForbidden) {
		models.NewForbidden(requestID, "admin role required").WithInstance(r.URL.Path).Write(w)
		return
	}

	var detail, challenge string
	switch {
	case errors.Is(err, errNoCredentials), errors.Is(err, errNotBearer), errors.Is(err, errEmptyToken):
		detail, challenge = err.Error(), `Bearer realm="airlens"`
	case errors.Is(err, auth.ErrNotConfigured):
		detail, challenge = "admin access is disabled", `Bearer realm="airlens"`
	case errors.Is(err, auth.ErrAccessTokenExpired):
		detail = "access token has expired"
		challenge = fmt.Sprintf(`Bearer realm="airlens", error="invalid_token", error_description=%q`, detail)
	default:
		detail = "invalid access token"
		challenge = `Bearer realm="airlens", error="invalid_token"`
	}

	w.Header().Set("WWW-Authenticate", challenge)
	models.NewUnauthorized(requestID, detail).WithInstance(r.URL.Path).Write(w)
}

// GetSubject returns the admin subject stored by Auth, or "".
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}
