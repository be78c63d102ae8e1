// Package auth verifies the bearer tokens that guard the admin endpoints.
//
// Admin tokens are HS256 JWTs signed with a server-side secret. They carry
// issuer, audience, subject, expiry and a "role" claim; only tokens with the
// admin role are authorized. There are no refresh tokens: operators mint a new
// token with cmd/admintoken when one expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// AccessTokenExpiry is the lifetime of a token minted without a TTL.
	AccessTokenExpiry = time.Hour

	// MaxAccessTokenTTL caps the lifetime of any minted token.
	MaxAccessTokenTTL = 30 * 24 * time.Hour

	// DefaultLeeway absorbs clock skew between the minting host and the API.
	DefaultLeeway = 30 * time.Second

	// RoleAdmin is the role required by admin endpoints.
	RoleAdmin = "admin"
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrForbidden          = errors.New("token lacks the admin role")
	ErrNotConfigured      = errors.New("token signing key is not configured")
)

// JWTClaims are the claims of an admin access token.
type JWTClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// JWTConfig configures a JWTService.
type JWTConfig struct {
	// SigningKey is the HS256 secret. Empty disables admin access.
	SigningKey string

	// Issuer and Audience are written to minted tokens and required on
	// verified ones.
	Issuer   string
	Audience string

	// Leeway overrides DefaultLeeway; a negative value disables it.
	Leeway time.Duration

	// Clock overrides time.Now.
	Clock func() time.Time
}

// JWTService mints and verifies admin access tokens.
type JWTService struct {
	key    []byte
	parser *jwt.Parser
	cfg    JWTConfig
}

// NewJWTService returns a service for cfg.
func NewJWTService(cfg JWTConfig) *JWTService {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	switch {
	case cfg.Leeway == 0:
		cfg.Leeway = DefaultLeeway
	case cfg.Leeway < 0:
		cfg.Leeway = 0
	}

	return &JWTService{
		key: []byte(cfg.SigningKey),
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.Leeway),
			jwt.WithTimeFunc(cfg.Clock),
		),
	}
}

// Configured reports whether a signing key is set.
func (s *JWTService) Configured() bool {
	return len(s.key) > 0
}

// GenerateAccessToken mints a token for subject with role. A non-positive ttl
// means AccessTokenExpiry; longer ttls are capped at MaxAccessTokenTTL.
func (s *JWTService) GenerateAccessToken(subject, role string, ttl time.Duration) (string, time.Time, error) {
	if !s.Configured() {
		return "", time.Time{}, ErrNotConfigured
	}
	if ttl <= 0 {
		ttl = AccessTokenExpiry
	}
	ttl = min(ttl, MaxAccessTokenTTL)

	issued := s.cfg.Clock()
	expires := issued.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: role,
	})

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry and
// returns the claims.
func (s *JWTService) ValidateAccessToken(raw string) (*JWTClaims, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}

	var claims JWTClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case err == nil:
		return &claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
}

// AuthorizeAdmin validates raw, requires the admin role and returns the
// token subject.
func (s *JWTService) AuthorizeAdmin(raw string) (string, error) {
	claims, err := s.ValidateAccessToken(raw)
	if err != nil {
		return "", err
	}
	if claims.Role != RoleAdmin {
		return "", ErrForbidden
	}
	return claims.Subject, nil
}
