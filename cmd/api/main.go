// Package main provides the entrypoint for the AirLens API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api"
	"github.com/airlens/airlens/internal/api/handler"
	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/auth"
	"github.com/airlens/airlens/internal/config"
	"github.com/airlens/airlens/internal/database"
	"github.com/airlens/airlens/internal/featureflags"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/panel"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
	"github.com/airlens/airlens/internal/telemetry"
	"github.com/airlens/airlens/internal/upstream"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airlens-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AirLens API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTel.Endpoint,
		Enabled:        cfg.OTel.Enabled,
		SampleRatio:    cfg.OTel.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTel.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTel.Endpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := provider.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	var checks []handler.ReadinessCheck

	// Connect to database (optional: feature flags and PostGIS predictions)
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare database schema")
		}
		db = pool
		checks = append(checks, handler.ReadinessCheck{Name: "database", Check: pool.Ping})
		if cfg.Predictions.Backend == config.BackendPostGIS {
			checks = append(checks, handler.ReadinessCheck{
				Name:  "postgis",
				Check: func(ctx context.Context) error { return database.CheckPostGIS(ctx, pool) },
			})
		}
		log.Info().Msg("database connected")
	} else {
		log.Warn().Msg("DATABASE_URL not set - feature flags are kept in memory")
	}

	// Initialize feature flags; policy flags override the configured policies.
	var flagStore featureflags.Store = featureflags.NewMemoryStore()
	if db != nil {
		flagStore = featureflags.NewPostgresStore(db)
	}
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Store:    flagStore,
		Logger:   log,
		Policies: cfg.Policies,
	})
	log.Info().Msg("feature flags service initialized")

	registry := resilience.NewRegistry()
	upstreams := upstream.New(upstream.Config{
		Settings:   cfg,
		Registry:   registry,
		Metrics:    providerMetrics,
		Policy:     ffService,
		OnDegraded: providerMetrics.RecordDegraded,
		Logger:     log,
	})

	predictionService, closePredictions, err := newPredictionService(ctx, cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize predictions backend")
	}
	defer closePredictions()
	log.Info().Str("backend", cfg.Predictions.Backend).Msg("predictions service initialized")

	aggregator := panel.NewAggregator(panel.AggregatorConfig{
		Gate:       geo.California,
		Places:     upstreams.Places,
		Weather:    upstreams.Weather,
		Stations:   upstreams.Stations,
		Satellite:  upstreams.Satellite,
		Policy:     ffService,
		Timeout:    cfg.PanelTimeout,
		OnDegraded: providerMetrics.RecordDegraded,
		Logger:     log,
	})
	sessions := panel.NewSessions(aggregator, cfg.SessionIdleTTL)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.JWT.SigningKey,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	})
	if !jwtService.Configured() {
		log.Warn().Msg("JWT_SIGNING_KEY not set - admin endpoints are disabled")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		ProviderMetrics:    providerMetrics,
		JWTService:         jwtService,
		Registry:           registry,
		ReadinessChecks:    checks,
		FeatureFlagService: ffService,
		Policies:           cfg.Policies,
		Stations:           upstreams.Stations,
		Weather:            upstreams.Weather,
		Satellite:          upstreams.Satellite,
		Predictions:        predictionService,
		Panel:              aggregator,
		Sessions:           sessions,
		Region:             geo.California,
		Center:             geo.CaliforniaCenter,
		StationLadder:      cfg.StationLadder,
		RequireTLS:         cfg.RequireTLS,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
