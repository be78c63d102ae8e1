package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/airlens/airlens/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

// Route class budgets.
var (
	// AdminRateLimit applies per admin subject on /v1/admin.
	AdminRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// ExpensiveRateLimit applies to the panel fan-out and warehouse-backed predictions.
	ExpensiveRateLimit = RateLimitConfig{RequestLimit: 30, WindowLength: time.Minute}

	// StandardRateLimit applies to single-source lookups and metadata.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits requests per client address. RealIP must run first
// for proxied deployments.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, httprate.KeyByRealIP)
}

// RateLimitBySubject limits requests per authenticated admin subject and
// falls back to the client address when Auth has not run.
func RateLimitBySubject(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return rateLimit(cfg, func(r *http.Request) (string, error) {
		if subject := GetSubject(r.Context()); subject != "" {
			return "subject:" + subject, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func rateLimit(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

// limitExceeded writes the 429 problem. httprate does not expose the window
// reset, so Retry-After is the full window rounded up to whole seconds.
func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))
	detail := fmt.Sprintf("Rate limit of %d requests per %s exceeded.", cfg.RequestLimit, cfg.WindowLength)

	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail).WithInstance(r.URL.Path)
		problem.Error = "Too many requests. Please try again later."

		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
