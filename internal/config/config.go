// Package config loads AirLens settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/provider"
)

// Prediction backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendPostGIS  = "postgis"
	BackendBigQuery = "bigquery"
)

// ErrInvalidConfig is wrapped by every validation error from Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings shared by the API server and the worker.
type Config struct {
	Env  string
	Port string

	// RequireTLS rejects requests forwarded over plain HTTP.
	RequireTLS bool

	// Upstream credentials. An empty value leaves that source unconfigured.
	AirNowAPIKey  string
	MapsAPIKey    string
	TempoAPIToken string

	// UpstreamMaxRetries is the number of retries on transient upstream
	// failures. Zero surfaces the first failure.
	UpstreamMaxRetries uint64

	Predictions PredictionsConfig

	// Policies are the per-domain degrade policies before runtime overrides.
	Policies provider.Policies

	// StationLadder is the station search radius ladder in miles.
	StationLadder []float64

	PanelTimeout   time.Duration
	SessionIdleTTL time.Duration

	// DatabaseURL enables the Postgres-backed feature flag store and the
	// PostGIS prediction store.
	DatabaseURL string

	JWT JWTConfig

	OTel OTelConfig

	PubSub PubSubConfig
}

// PredictionsConfig selects and configures the prediction backend.
type PredictionsConfig struct {
	Backend string

	// File is the GeoJSON file served by the memory backend.
	File string

	// PGTable is the PostGIS table, optionally schema qualified.
	PGTable string

	BQProjectID string
	BQDataset   string
	BQTable     string
	BQLocation  string

	// PredColumn is the prediction column in either warehouse.
	PredColumn string
}

// JWTConfig configures admin token verification.
type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
}

// OTelConfig configures telemetry export.
type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	SampleRatio float64
}

// PubSubConfig configures the worker subscription.
type PubSubConfig struct {
	ProjectID      string
	SubscriptionID string
}

// Load reads a .env file when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:           getEnvOrDefault("APP_ENV", "development"),
		Port:          getEnvOrDefault("PORT", getEnvOrDefault("APP_PORT", "8080")),
		AirNowAPIKey:  os.Getenv("AIRNOW_API_KEY"),
		MapsAPIKey:    os.Getenv("MAPS_API_KEY"),
		TempoAPIToken: os.Getenv("TEMPO_API_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RequireTLS:    os.Getenv("REQUIRE_TLS") == "true",
		Predictions: PredictionsConfig{
			Backend:     strings.ToLower(getEnvOrDefault("PREDICTIONS_BACKEND", BackendNone)),
			File:        os.Getenv("PREDICTIONS_FILE"),
			PGTable:     getEnvOrDefault("PG_PRED_TABLE", "predictions"),
			BQProjectID: os.Getenv("BQ_PROJECT_ID"),
			BQDataset:   os.Getenv("BQ_DATASET"),
			BQTable:     os.Getenv("BQ_PRED_TABLE"),
			BQLocation:  getEnvOrDefault("BQ_LOCATION", "US"),
			PredColumn:  getEnvOrDefault("PRED_COL_NAME", "pm25_pred"),
		},
		JWT: JWTConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			Issuer:     getEnvOrDefault("JWT_ISSUER", "https://api.airlens.dev"),
			Audience:   getEnvOrDefault("JWT_AUDIENCE", "airlens-admin"),
		},
		OTel: OTelConfig{
			Enabled:  os.Getenv("OTEL_ENABLED") == "true",
			Endpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		},
		PubSub: PubSubConfig{
			ProjectID:      getEnvOrDefault("PUBSUB_PROJECT_ID", os.Getenv("GOOGLE_CLOUD_PROJECT")),
			SubscriptionID: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "provider-probe"),
		},
	}

	var err error
	if cfg.UpstreamMaxRetries, err = strconv.ParseUint(getEnvOrDefault("UPSTREAM_MAX_RETRIES", "0"), 10, 8); err != nil {
		return Config{}, fmt.Errorf("%w: UPSTREAM_MAX_RETRIES: %v", ErrInvalidConfig, err)
	}
	if cfg.OTel.SampleRatio, err = strconv.ParseFloat(getEnvOrDefault("OTEL_SAMPLE_RATIO", "1"), 64); err != nil {
		return Config{}, fmt.Errorf("%w: OTEL_SAMPLE_RATIO: %v", ErrInvalidConfig, err)
	}
	if cfg.PanelTimeout, err = parseDuration("PANEL_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	if cfg.SessionIdleTTL, err = parseDuration("SESSION_IDLE_TTL", "10m"); err != nil {
		return Config{}, err
	}
	if cfg.Policies, err = policiesFromEnv(); err != nil {
		return Config{}, err
	}
	if cfg.StationLadder, err = ladderFromEnv(os.Getenv("STATION_LADDER")); err != nil {
		return Config{}, err
	}

	switch cfg.Predictions.Backend {
	case BackendNone, BackendMemory, BackendPostGIS, BackendBigQuery:
	default:
		return Config{}, fmt.Errorf("%w: PREDICTIONS_BACKEND %q", ErrInvalidConfig, cfg.Predictions.Backend)
	}

	return cfg, nil
}

// policiesFromEnv overlays POLICY_<DOMAIN> values on the defaults.
func policiesFromEnv() (provider.Policies, error) {
	policies := provider.DefaultPolicies()
	for _, domain := range provider.Domains {
		key := "POLICY_" + strings.ToUpper(string(domain))
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		policy, err := provider.ParsePolicy(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		policies[domain] = policy
	}
	return policies, nil
}

// ladderFromEnv parses a comma separated radius ladder. Unset means the
// default ladder.
func ladderFromEnv(raw string) ([]float64, error) {
	if strings.TrimSpace(raw) == "" {
		return airquality.DefaultLadder, nil
	}

	parts := strings.Split(raw, ",")
	ladder := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: STATION_LADDER: %v", ErrInvalidConfig, err)
		}
		ladder = append(ladder, v)
	}
	if err := airquality.ValidateLadder(ladder); err != nil {
		return nil, fmt.Errorf("%w: STATION_LADDER: %v", ErrInvalidConfig, err)
	}
	return ladder, nil
}

func parseDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, defaultValue))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive duration", ErrInvalidConfig, key)
	}
	return d, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
