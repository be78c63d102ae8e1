// Package geocoding resolves a coordinate to a display name using the Google
// Geocoding API.
package geocoding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "geocoding"

	// DefaultBaseURL is the Google Geocoding API endpoint.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

	// NameNotFound is returned when the lookup succeeds without any result.
	NameNotFound = "Location name not found"
)

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// APIKey is the Google Maps Platform key.
	APIKey string

	// BaseURL is the API endpoint (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient provider.HTTPDoer

	// Registry receives call outcomes for health reporting.
	Registry *resilience.Registry

	// Metrics records request latency. Optional.
	Metrics provider.RequestRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client performs reverse geocoding lookups.
type Client struct {
	apiKey  string
	baseURL string
	caller  *provider.Caller
	logger  zerolog.Logger
}

// NewClient creates a new geocoding client.
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
		baseURL: baseURL,
		caller:  provider.NewCaller(ProviderName, httpClient, health, cfg.Metrics),
		logger:  cfg.Logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

// CheckBody rejects the statuses the API uses for quota and key problems,
// which arrive with HTTP 200.
func (r *geocodeResponse) CheckBody() error {
	switch r.Status {
	case "", "OK", "ZERO_RESULTS":
		return nil
	}
	return &provider.Error{
		Provider:   ProviderName,
		Kind:       provider.KindStatus,
		StatusCode: http.StatusOK,
		Body:       r.Status,
		Message:    strings.TrimSpace(r.Status + " " + r.ErrorMessage),
	}
}

// PlaceName returns the first formatted address for point, or NameNotFound
// when the lookup has no results.
func (c *Client) PlaceName(ctx context.Context, point geo.Point) (string, error) {
	if !c.Configured() {
		return "", provider.NotConfigured(ProviderName)
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", point.Lat, point.Lon))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	var resp geocodeResponse
	if err := c.caller.GetJSON(req, "reverse_geocode", &resp); err != nil {
		c.logger.Warn().Err(err).Msg("geocoding request failed")
		return "", err
	}

	for _, r := range resp.Results {
		if r.FormattedAddress != "" {
			return r.FormattedAddress, nil
		}
	}
	return NameNotFound, nil
}
