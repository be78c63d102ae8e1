package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/weather"
)

// StationService returns reduced station observations near a point.
type StationService interface {
	Current(ctx context.Context, point geo.Point, distance float64) ([]airquality.Observation, error)
}

// WeatherService returns current conditions.
type WeatherService interface {
	Current(ctx context.Context, point geo.Point) (*weather.Snapshot, error)
}

// SatelliteService returns an NO2 column reading.
type SatelliteService interface {
	Reading(ctx context.Context, point geo.Point) (*satellite.Reading, error)
}

// ProbeJob calls every configured provider at a set of sample points. The
// adapters record each outcome in the shared resilience registry.
type ProbeJob struct {
	config ProbeConfig
	logger zerolog.Logger

	// Services (optional, nil if not configured)
	stations  StationService
	weather   WeatherService
	satellite SatelliteService

	metrics *ProbeMetrics
}

// ProbeMetrics tracks probe job statistics.
type ProbeMetrics struct {
	mu sync.RWMutex

	TotalRuns        int64
	SuccessfulPoints int64
	FailedPoints     int64
	SkippedProbes    int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// ProbeJobConfig holds configuration for creating a ProbeJob.
type ProbeJobConfig struct {
	Config    ProbeConfig
	Logger    zerolog.Logger
	Stations  StationService
	Weather   WeatherService
	Satellite SatelliteService
}

// NewProbeJob creates a new probe job.
func NewProbeJob(cfg ProbeJobConfig) *ProbeJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config = DefaultProbeConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &ProbeJob{
		config:    config,
		logger:    cfg.Logger,
		stations:  cfg.Stations,
		weather:   cfg.Weather,
		satellite: cfg.Satellite,
		metrics:   &ProbeMetrics{},
	}
}

// WithConfig returns a job probing the same services with cfg.
func (j *ProbeJob) WithConfig(cfg ProbeConfig) *ProbeJob {
	return NewProbeJob(ProbeJobConfig{
		Config:    cfg,
		Logger:    j.logger,
		Stations:  j.stations,
		Weather:   j.weather,
		Satellite: j.satellite,
	})
}

// ProbeResult contains the result of a probe run.
type ProbeResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int

	// Skipped counts probes of unconfigured providers.
	Skipped int

	Errors []ProbeError
}

// ProbeError is one failed provider call.
type ProbeError struct {
	Domain provider.Domain
	Target string
	Error  string
}

type pointResult struct {
	skipped int
	errors  []ProbeError
}

// Run probes every target with bounded concurrency.
func (j *ProbeJob) Run(ctx context.Context) *ProbeResult {
	startTime := time.Now()
	result := &ProbeResult{
		StartTime:   startTime,
		TotalPoints: len(j.config.Targets),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting provider probe job")

	results := make([]pointResult, len(j.config.Targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for i, target := range j.config.Targets {
		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = pointResult{errors: []ProbeError{{Target: target.Name, Error: gctx.Err().Error()}}}
				return nil
			}
			results[i] = j.probePoint(gctx, target)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probes never return errors

	for _, pr := range results {
		result.Skipped += pr.skipped
		if len(pr.errors) > 0 {
			result.Failed++
			result.Errors = append(result.Errors, pr.errors...)
		} else {
			result.Successful++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("provider probe job completed")

	return result
}

func (j *ProbeJob) probePoint(ctx context.Context, target ProbeTarget) pointResult {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	var result pointResult
	record := func(domain provider.Domain, err error) {
		switch {
		case err == nil:
		case errors.Is(err, provider.ErrNotConfigured):
			result.skipped++
		default:
			j.logger.Warn().
				Err(err).
				Str("domain", string(domain)).
				Str("target", target.Name).
				Msg("provider probe failed")
			result.errors = append(result.errors, ProbeError{Domain: domain, Target: target.Name, Error: err.Error()})
		}
	}

	if j.config.ProbeStations && j.stations != nil {
		_, err := j.stations.Current(ctx, target.Point, 0)
		record(provider.DomainStations, err)
	}
	if j.config.ProbeWeather && j.weather != nil {
		_, err := j.weather.Current(ctx, target.Point)
		record(provider.DomainWeather, err)
	}
	if j.config.ProbeSatellite && j.satellite != nil {
		record(provider.DomainSatellite, probeSatellite(ctx, j.satellite, target.Point))
	}

	return result
}

// probeSatellite treats degraded readings as failures, except the simulated
// reading served when no token is configured.
func probeSatellite(ctx context.Context, service SatelliteService, point geo.Point) error {
	reading, err := service.Reading(ctx, point)
	if err != nil {
		return err
	}
	switch reading.Source {
	case satellite.SourceLive:
		return nil
	case satellite.SourceSimulated:
		return provider.NotConfigured("harmony")
	default:
		return fmt.Errorf("degraded satellite reading: %s", reading.Source)
	}
}

func (j *ProbeJob) updateMetrics(result *ProbeResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulPoints += int64(result.Successful)
	j.metrics.FailedPoints += int64(result.Failed)
	j.metrics.SkippedProbes += int64(result.Skipped)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// MetricsSnapshot returns the current metrics as a map.
func (j *ProbeJob) MetricsSnapshot() map[string]interface{} {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]interface{}{
		"total_runs":        j.metrics.TotalRuns,
		"successful_points": j.metrics.SuccessfulPoints,
		"failed_points":     j.metrics.FailedPoints,
		"skipped_probes":    j.metrics.SkippedProbes,
		"last_run_at":       j.metrics.LastRunAt,
		"last_run_duration": j.metrics.LastRunDuration.String(),
		"total_duration":    j.metrics.TotalDuration.String(),
	}
}
