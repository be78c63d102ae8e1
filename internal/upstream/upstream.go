// Package upstream builds the provider adapters and domain services shared by
// the API server and the worker.
package upstream

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/airquality/airnow"
	"github.com/airlens/airlens/internal/config"
	"github.com/airlens/airlens/internal/geocoding"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/satellite/harmony"
	"github.com/airlens/airlens/internal/weather"
	"github.com/airlens/airlens/internal/weather/googleweather"
)

// harmonyTimeout allows for Harmony's slow point subsetting.
const harmonyTimeout = 30 * time.Second

// Config holds what New needs to build the services.
type Config struct {
	Settings config.Config

	// Registry receives every adapter's call outcomes.
	Registry *resilience.Registry

	// Metrics records request latency. Optional.
	Metrics *provider.Metrics

	// Policy resolves the satellite degrade policy.
	Policy provider.PolicySource

	// OnDegraded is called when a degraded satellite reading is served. Optional.
	OnDegraded func(domain provider.Domain)

	Logger zerolog.Logger
}

// Services are the domain services over live adapters.
type Services struct {
	Stations  *airquality.Service
	Weather   *weather.Service
	Satellite *satellite.Service
	Places    *geocoding.Client
}

// New builds every adapter on a resilient HTTP client registered in
// cfg.Registry. Missing credentials leave the adapter answering NotConfigured.
func New(cfg Config) *Services {
	var metrics provider.RequestRecorder
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	httpClient := func(name string, timeout time.Duration) *resilience.Client {
		rcfg := resilience.DefaultClientConfig(name)
		rcfg.MaxRetries = cfg.Settings.UpstreamMaxRetries
		rcfg.Registry = cfg.Registry
		rcfg.Logger = cfg.Logger
		if timeout > 0 {
			rcfg.Timeout = timeout
		}
		return resilience.NewClient(rcfg)
	}

	airNow := airnow.NewClient(airnow.ClientConfig{
		APIKey:     cfg.Settings.AirNowAPIKey,
		HTTPClient: httpClient(airnow.ProviderName, 0),
		Registry:   cfg.Registry,
		Metrics:    metrics,
		Logger:     cfg.Logger,
	})
	weatherClient := googleweather.NewClient(googleweather.ClientConfig{
		APIKey:     cfg.Settings.MapsAPIKey,
		HTTPClient: httpClient(googleweather.ProviderName, 0),
		Registry:   cfg.Registry,
		Metrics:    metrics,
		Logger:     cfg.Logger,
	})
	harmonyClient := harmony.NewClient(harmony.ClientConfig{
		Token:      cfg.Settings.TempoAPIToken,
		HTTPClient: httpClient(harmony.ProviderName, harmonyTimeout),
		Registry:   cfg.Registry,
		Metrics:    metrics,
		Logger:     cfg.Logger,
	})
	places := geocoding.NewClient(geocoding.ClientConfig{
		APIKey:     cfg.Settings.MapsAPIKey,
		HTTPClient: httpClient(geocoding.ProviderName, 0),
		Registry:   cfg.Registry,
		Metrics:    metrics,
		Logger:     cfg.Logger,
	})

	logMissing(cfg.Logger, map[string]bool{
		"AIRNOW_API_KEY":  cfg.Settings.AirNowAPIKey == "",
		"MAPS_API_KEY":    cfg.Settings.MapsAPIKey == "",
		"TEMPO_API_TOKEN": cfg.Settings.TempoAPIToken == "",
	})

	return &Services{
		Stations: airquality.NewService(airquality.ServiceConfig{
			Source: airNow,
			Ladder: cfg.Settings.StationLadder,
			Logger: cfg.Logger,
		}),
		Weather: weather.NewService(weather.ServiceConfig{
			Provider: weatherClient,
			Logger:   cfg.Logger,
		}),
		Satellite: satellite.NewService(satellite.ServiceConfig{
			Provider:   harmonyClient,
			Policy:     cfg.Policy,
			OnDegraded: cfg.OnDegraded,
			Logger:     cfg.Logger,
		}),
		Places: places,
	}
}

func logMissing(logger zerolog.Logger, missing map[string]bool) {
	for key, isMissing := range missing {
		if isMissing {
			logger.Warn().Str("setting", key).Msg("credential not set - provider will report not configured")
		}
	}
}
