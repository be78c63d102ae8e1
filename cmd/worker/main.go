// Package main provides the entrypoint for the AirLens provider probe worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/config"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
	"github.com/airlens/airlens/internal/telemetry"
	"github.com/airlens/airlens/internal/upstream"
	"github.com/airlens/airlens/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "airlens-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting AirLens worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.PubSub.ProjectID == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID or GOOGLE_CLOUD_PROJECT must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	providerMetrics, err := provider.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	// The worker probes with the configured policies; runtime overrides live
	// with the API's feature flags.
	registry := resilience.NewRegistry()
	services := upstream.New(upstream.Config{
		Settings: cfg,
		Registry: registry,
		Metrics:  providerMetrics,
		Policy:   cfg.Policies,
		Logger:   log,
	})

	probeJob := worker.NewProbeJob(worker.ProbeJobConfig{
		Config:    worker.DefaultProbeConfig(),
		Logger:    log,
		Stations:  services.Stations,
		Weather:   services.Weather,
		Satellite: services.Satellite,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		SubscriptionName: cfg.PubSub.SubscriptionID,
		Processor:        worker.NewProcessor(probeJob, log),
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
	}
	defer func() {
		if closeErr := handler.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close pubsub client")
		}
	}()

	// Worker also exposes a health endpoint for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"version":   Version,
			"probes":    probeJob.MetricsSnapshot(),
			"providers": providerSummary(registry),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := handler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("pubsub receive stopped")
			cancel()
		}
	}()

	// Wait for interrupt signal or a dead subscription
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

// providerSummary maps provider names to healthy, degraded or unhealthy.
func providerSummary(registry *resilience.Registry) map[string]string {
	summary := make(map[string]string)
	for _, health := range registry.All() {
		summary[health.Name] = string(health.Condition())
	}
	return summary
}
