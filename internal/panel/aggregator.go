package panel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/telemetry"
)

// AggregatorConfig holds the panel's collaborators.
type AggregatorConfig struct {
	// Gate restricts enrichment to the service region (default: geo.California).
	Gate Gate

	Places    PlaceNamer
	Weather   WeatherSource
	Stations  StationSource
	Satellite SatelliteSource

	// Policy decides whether station and weather failures degrade (default: DefaultPolicies).
	Policy provider.PolicySource

	// Timeout bounds a whole panel load (default: 15s).
	Timeout time.Duration

	// OnDegraded is called when a section is served degraded. Optional.
	OnDegraded func(domain provider.Domain)

	// Logger for aggregation.
	Logger zerolog.Logger
}

// Aggregator loads all panel sections for a point.
type Aggregator struct {
	gate       Gate
	places     PlaceNamer
	weather    WeatherSource
	stations   StationSource
	satellite  SatelliteSource
	policy     provider.PolicySource
	timeout    time.Duration
	onDegraded func(provider.Domain)
	logger     zerolog.Logger
}

// NewAggregator creates a new panel aggregator.
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	gate := cfg.Gate
	if gate == nil {
		gate = geo.California
	}

	policy := cfg.Policy
	if policy == nil {
		policy = provider.DefaultPolicies()
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Aggregator{
		gate:       gate,
		places:     cfg.Places,
		weather:    cfg.Weather,
		stations:   cfg.Stations,
		satellite:  cfg.Satellite,
		policy:     policy,
		timeout:    timeout,
		onDegraded: cfg.OnDegraded,
		logger:     cfg.Logger,
	}
}

// Load gates the point and, when inside the region, fetches every section
// concurrently. A failing section never cancels its siblings.
func (a *Aggregator) Load(ctx context.Context, point geo.Point) State {
	ctx, span := telemetry.StartSpan(ctx, "panel.Load",
		attribute.Float64("geo.lat", point.Lat),
		attribute.Float64("geo.lon", point.Lon),
	)
	defer span.End()

	state := State{Point: point}

	if !a.gate.Contains(point) {
		state.Region = RegionOutside
		span.SetAttributes(attribute.String("panel.region", RegionOutside))
		a.logger.Debug().Str("point", point.String()).Msg("point outside service region")
		return state
	}
	state.Region = RegionInside
	span.SetAttributes(attribute.String("panel.region", RegionInside))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	// Section goroutines never return errors; errgroup is used for the join.
	var g errgroup.Group

	g.Go(func() error {
		state.Place = traceSection(ctx, "place", func(ctx context.Context) *PlaceSection {
			return a.loadPlace(ctx, point)
		})
		return nil
	})
	g.Go(func() error {
		state.Weather = traceSection(ctx, "weather", func(ctx context.Context) *WeatherSection {
			return a.loadWeather(ctx, point)
		})
		return nil
	})
	g.Go(func() error {
		state.Stations = traceSection(ctx, "stations", func(ctx context.Context) *StationsSection {
			return a.loadStations(ctx, point)
		})
		return nil
	})
	g.Go(func() error {
		state.Satellite = traceSection(ctx, "satellite", func(ctx context.Context) *SatelliteSection {
			return a.loadSatellite(ctx, point)
		})
		return nil
	})

	_ = g.Wait()
	return state
}

// traceSection runs load in a "panel.<name>" child span and records the
// section status on it.
func traceSection[T interface{ sectionStatus() Status }](ctx context.Context, name string, load func(context.Context) T) T {
	ctx, span := telemetry.StartSpan(ctx, "panel."+name)
	defer span.End()

	result := load(ctx)
	status := result.sectionStatus()
	span.SetAttributes(attribute.String("panel.section.status", string(status)))
	if status == StatusFailed {
		span.SetStatus(codes.Error, "section failed")
	}
	return result
}

func (a *Aggregator) loadPlace(ctx context.Context, point geo.Point) *PlaceSection {
	if a.places == nil {
		return &PlaceSection{Section: Section{Status: StatusNotConfigured}}
	}

	name, err := a.places.PlaceName(ctx, point)
	if err != nil {
		return &PlaceSection{Section: a.failure(ctx, "", err)}
	}
	return &PlaceSection{Section: Section{Status: StatusOK}, Name: name}
}

func (a *Aggregator) loadWeather(ctx context.Context, point geo.Point) *WeatherSection {
	if a.weather == nil {
		return &WeatherSection{Section: Section{Status: StatusNotConfigured}}
	}

	snapshot, err := a.weather.Current(ctx, point)
	if err != nil {
		return &WeatherSection{Section: a.failure(ctx, provider.DomainWeather, err)}
	}
	if snapshot == nil {
		return &WeatherSection{Section: Section{Status: StatusEmpty}}
	}
	return &WeatherSection{Section: Section{Status: StatusOK}, Data: snapshot}
}

func (a *Aggregator) loadStations(ctx context.Context, point geo.Point) *StationsSection {
	if a.stations == nil {
		return &StationsSection{Section: Section{Status: StatusNotConfigured}}
	}

	observations, err := a.stations.Current(ctx, point, 0)
	if err != nil {
		return &StationsSection{Section: a.failure(ctx, provider.DomainStations, err)}
	}
	if len(observations) == 0 {
		return &StationsSection{Section: Section{Status: StatusEmpty}}
	}
	return &StationsSection{Section: Section{Status: StatusOK}, Data: observations}
}

func (a *Aggregator) loadSatellite(ctx context.Context, point geo.Point) *SatelliteSection {
	if a.satellite == nil {
		return &SatelliteSection{Section: Section{Status: StatusNotConfigured}}
	}

	reading, err := a.satellite.Reading(ctx, point)
	if err != nil {
		return &SatelliteSection{Section: a.failure(ctx, "", err)}
	}

	section := &SatelliteSection{Data: reading}
	switch {
	case reading.Source == satellite.SourceSimulated:
		section.Status = StatusNotConfigured
	case reading.Source != satellite.SourceLive:
		section.Status = StatusDegraded
		section.Error = reading.Source
	case reading.Value == satellite.NotAvailable:
		section.Status = StatusEmpty
	default:
		section.Status = StatusOK
	}
	return section
}

// failure classifies a section error. domain selects the degrade policy;
// an empty domain always reports failed. A canceled load is neither logged
// nor reported as degraded.
func (a *Aggregator) failure(ctx context.Context, domain provider.Domain, err error) Section {
	if errors.Is(err, provider.ErrNotConfigured) {
		return Section{Status: StatusNotConfigured, Error: err.Error()}
	}

	details := provider.Details(err)
	if errors.Is(ctx.Err(), context.Canceled) {
		// Superseded or abandoned load; nobody reads this section.
		return Section{Status: StatusFailed, Error: details}
	}
	if domain != "" && a.policy.Policy(ctx, domain) == provider.Degrade {
		if a.onDegraded != nil {
			a.onDegraded(domain)
		}
		return Section{Status: StatusDegraded, Error: details}
	}

	a.logger.Warn().Err(err).Str("domain", string(domain)).Msg("panel section failed")
	return Section{Status: StatusFailed, Error: details}
}
