// Package airnow provides a client for the AirNow current observations API.
package airnow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the AirNow API.
	DefaultBaseURL = "https://www.airnowapi.org"

	// ProviderName identifies this provider.
	ProviderName = "airnow"

	observationPath = "/aq/observation/latLong/current/"
)

// ClientConfig holds configuration for the AirNow client.
type ClientConfig struct {
	// APIKey is the AirNow API key. Without it every call fails with NotConfigured.
	APIKey string

	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// HTTPClient is the HTTP client to use.
	// If nil, a resilient client registered in Registry is created.
	HTTPClient provider.HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	// Registry receives call outcomes for health reporting.
	Registry *resilience.Registry

	// Metrics records request latency. Optional.
	Metrics provider.RequestRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an AirNow API client.
type Client struct {
	apiKey  string
	baseURL string
	caller  *provider.Caller
	logger  zerolog.Logger
}

// NewClient creates a new AirNow client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rcfg.Timeout = cfg.Timeout
		}
		rcfg.Registry = cfg.Registry
		rcfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(rcfg)
	}

	var health provider.HealthRecorder
	if cfg.Registry != nil {
		health = cfg.Registry
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		caller:  provider.NewCaller(ProviderName, httpClient, health, cfg.Metrics),
		logger:  cfg.Logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// observation is one element of the AirNow response array.
type observation struct {
	DateObserved  string  `json:"DateObserved"`
	HourObserved  int     `json:"HourObserved"`
	LocalTimeZone string  `json:"LocalTimeZone"`
	ReportingArea string  `json:"ReportingArea"`
	StateCode     string  `json:"StateCode"`
	Latitude      float64 `json:"Latitude"`
	Longitude     float64 `json:"Longitude"`
	ParameterName string  `json:"ParameterName"`
	AQI           int     `json:"AQI"`
	Category      struct {
		Number int    `json:"Number"`
		Name   string `json:"Name"`
	} `json:"Category"`
}

// Observations returns current observations within distance miles of point.
func (c *Client) Observations(ctx context.Context, point geo.Point, distance float64) ([]airquality.Observation, error) {
	if !c.Configured() {
		return nil, provider.NotConfigured(ProviderName)
	}

	params := url.Values{}
	params.Set("format", "application/json")
	params.Set("latitude", strconv.FormatFloat(point.Lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(point.Lon, 'f', -1, 64))
	params.Set("distance", strconv.FormatFloat(distance, 'f', -1, 64))
	params.Set("API_KEY", c.apiKey)

	reqURL := c.baseURL + observationPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	var result []observation
	if err := c.caller.GetJSON(req, "observations", &result); err != nil {
		c.logger.Warn().Err(err).Float64("distance", distance).Msg("airnow request failed")
		return nil, err
	}

	observations := make([]airquality.Observation, 0, len(result))
	for i := range result {
		observations = append(observations, toObservation(&result[i]))
	}
	return observations, nil
}

// toObservation converts an API observation to the domain type.
func toObservation(o *observation) airquality.Observation {
	return airquality.Observation{
		Parameter:     airquality.Parameter(strings.TrimSpace(o.ParameterName)),
		AQI:           o.AQI,
		Category:      airquality.Category{Number: o.Category.Number, Name: o.Category.Name},
		ReportingArea: o.ReportingArea,
		StateCode:     o.StateCode,
		Latitude:      o.Latitude,
		Longitude:     o.Longitude,
		ObservedAt:    observedAt(o.DateObserved, o.HourObserved, o.LocalTimeZone),
	}
}

// zoneOffsets maps the US zone abbreviations AirNow reports to UTC offsets in hours.
var zoneOffsets = map[string]int{
	"HST":  -10,
	"AKST": -9,
	"AKDT": -8,
	"PST":  -8,
	"PDT":  -7,
	"MST":  -7,
	"MDT":  -6,
	"CST":  -6,
	"CDT":  -5,
	"EST":  -5,
	"EDT":  -4,
}

// observedAt combines AirNow's local date, hour and zone abbreviation.
// Unparsable dates yield the zero time.
func observedAt(date string, hour int, zone string) time.Time {
	zone = strings.ToUpper(strings.TrimSpace(zone))
	loc := time.UTC
	if offset, ok := zoneOffsets[zone]; ok {
		loc = time.FixedZone(zone, offset*3600)
	}

	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}
	}
	return day.Add(time.Duration(hour) * time.Hour)
}
