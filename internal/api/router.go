// Package api provides the HTTP API for AirLens.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/handler"
	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/auth"
	"github.com/airlens/airlens/internal/featureflags"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// ProviderMetrics counts degraded responses. Optional.
	ProviderMetrics *provider.Metrics

	// JWTService verifies admin tokens. Without a signing key admin routes
	// answer 401.
	JWTService *auth.JWTService

	Registry        *resilience.Registry
	ReadinessChecks []handler.ReadinessCheck

	// FeatureFlagService resolves runtime policy overrides. When nil an
	// in-memory service over Policies is used.
	FeatureFlagService *featureflags.Service
	Policies           provider.Policies

	// Domain services are required.
	Stations    handler.StationService
	Weather     handler.WeatherService
	Satellite   handler.SatelliteService
	Predictions handler.PredictionService
	Panel       panel.Loader
	Sessions    handler.SessionStore

	// RequireTLS rejects forwarded plain-HTTP requests.
	RequireTLS bool

	// Region defaults to California.
	Region        *geo.Region
	Center        geo.Point
	StationLadder []float64
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "airlens-api"
	}

	jwtService := cfg.JWTService
	if jwtService == nil {
		jwtService = auth.NewJWTService(auth.JWTConfig{})
	}

	flags := cfg.FeatureFlagService
	if flags == nil {
		flags = featureflags.NewService(featureflags.ServiceConfig{
			Store:    featureflags.NewMemoryStore(),
			Logger:   cfg.Logger,
			Policies: cfg.Policies,
		})
	}

	var onDegraded func(provider.Domain)
	if cfg.ProviderMetrics != nil {
		onDegraded = cfg.ProviderMetrics.RecordDegraded
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing(middleware.TracingConfig{ServiceName: serviceName}))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // Reject forwarded plain HTTP
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.ReadinessChecks,
		Policies:  flags,
	})
	airQualityHandler := handler.NewAirQualityHandler(cfg.Stations, flags, onDegraded, cfg.Logger)
	weatherHandler := handler.NewWeatherHandler(cfg.Weather, flags, onDegraded, cfg.Logger)
	satelliteHandler := handler.NewSatelliteHandler(cfg.Satellite, cfg.Logger)
	predictionsHandler := handler.NewPredictionsHandler(cfg.Predictions, flags, onDegraded, cfg.Logger)
	panelHandler := handler.NewPanelHandler(cfg.Panel, cfg.Sessions, cfg.Logger)
	metadataHandler := handler.NewMetadataHandler(cfg.Region, cfg.Center, cfg.StationLadder)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(flags, cfg.Logger)

	authMiddleware := middleware.Auth(jwtService)

	adminRateLimit := middleware.RateLimitBySubject(middleware.AdminRateLimit)
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints (public) - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/region", metadataHandler.GetRegion)
			r.Get("/enums", metadataHandler.GetEnums)
		})

		// Single-source lookups - standard rate limiting
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/air-quality", airQualityHandler.GetCurrent)
			r.Get("/weather", weatherHandler.GetCurrent)
			r.Get("/satellite/no2", satelliteHandler.GetNO2)
		})

		// Fan-out and warehouse queries - strict rate limiting
		r.With(expensiveRateLimit).Get("/predictions", predictionsHandler.GetPredictions)
		r.With(expensiveRateLimit, middleware.Session).Get("/panel", panelHandler.GetPanel)

		// Admin endpoints (authenticated)
		r.Route("/admin", func(r chi.Router) {
			// The address limit guards token guessing; the subject limit
			// budgets each admin.
			r.Use(standardRateLimit)
			r.Use(authMiddleware)
			r.Use(adminRateLimit)
			r.Use(middleware.RequireJSON)

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
			})
		})
	})

	return r
}
