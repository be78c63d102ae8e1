// Package googleweather provides a client for the Google Weather API.
package googleweather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
	"github.com/airlens/airlens/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "googleweather"

	// DefaultBaseURL is the Google Weather API base URL.
	DefaultBaseURL = "https://weather.googleapis.com"

	currentConditionsPath = "/v1/currentConditions:lookup"
)

// ClientConfig holds configuration for the Google Weather client.
type ClientConfig struct {
	// APIKey is the Google Maps Platform key. Without it calls fail with NotConfigured.
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient provider.HTTPDoer

	// Registry receives call outcomes for health reporting.
	Registry *resilience.Registry

	// Metrics records request latency. Optional.
	Metrics provider.RequestRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Weather API client.
type Client struct {
	apiKey  string
	baseURL string
	caller  *provider.Caller
	logger  zerolog.Logger
}

// NewClient creates a new Google Weather client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := resilience.DefaultClientConfig(ProviderName)
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

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type currentConditionsResponse struct {
	CurrentTime      time.Time `json:"currentTime"`
	RelativeHumidity float64   `json:"relativeHumidity"`
	Temperature      struct {
		Degrees float64 `json:"degrees"`
		Unit    string  `json:"unit"`
	} `json:"temperature"`
	Wind struct {
		Speed struct {
			Value float64 `json:"value"`
			Unit  string  `json:"unit"`
		} `json:"speed"`
	} `json:"wind"`
	WeatherCondition struct {
		IconBaseURI string `json:"iconBaseUri"`
		Description struct {
			Text string `json:"text"`
		} `json:"description"`
	} `json:"weatherCondition"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Current fetches current conditions at point.
func (c *Client) Current(ctx context.Context, point geo.Point) (*weather.Snapshot, error) {
	if !c.Configured() {
		return nil, provider.NotConfigured(ProviderName)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("location.latitude", strconv.FormatFloat(point.Lat, 'f', -1, 64))
	params.Set("location.longitude", strconv.FormatFloat(point.Lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentConditionsPath+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var resp currentConditionsResponse
	if err := c.caller.GetJSON(req, "current_conditions", &resp); err != nil {
		withUpstreamMessage(err)
		c.logger.Warn().Err(err).Msg("google weather request failed")
		return nil, err
	}

	return toSnapshot(&resp), nil
}

// withUpstreamMessage lifts error.message out of a Google error body.
func withUpstreamMessage(err error) {
	perr, ok := provider.AsError(err)
	if !ok || perr.Kind != provider.KindStatus || perr.Body == "" {
		return
	}
	var body errorResponse
	if json.Unmarshal([]byte(perr.Body), &body) == nil {
		perr.Message = body.Error.Message
	}
}

func toSnapshot(resp *currentConditionsResponse) *weather.Snapshot {
	temperature := resp.Temperature.Degrees
	if strings.EqualFold(resp.Temperature.Unit, "FAHRENHEIT") {
		temperature = (temperature - 32) * 5 / 9
	}

	observedAt := resp.CurrentTime
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return &weather.Snapshot{
		ObservedAt:   observedAt,
		TemperatureC: temperature,
		HumidityPct:  int(math.Round(resp.RelativeHumidity)),
		WindSpeed: weather.Wind{
			Value: resp.Wind.Speed.Value,
			Unit:  resp.Wind.Speed.Unit,
		},
		Condition: weather.Condition{
			Text:    resp.WeatherCondition.Description.Text,
			IconURI: resp.WeatherCondition.IconBaseURI,
		},
	}
}
