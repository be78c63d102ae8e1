// Package harmony provides a client for NASA Earthdata Harmony point subsets
// of the TEMPO tropospheric NO2 product.
package harmony

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "harmony"

	// DefaultBaseURL is the Harmony service endpoint.
	DefaultBaseURL = "https://harmony.earthdata.nasa.gov/harmony"

	// CollectionID is the TEMPO L2 NO2 collection.
	CollectionID = "C2799434144-GES_DISC"

	// Variable is the tropospheric NO2 column variable.
	Variable = "nitrogendioxide_tropospheric_column"
)

// ClientConfig holds configuration for the Harmony client.
type ClientConfig struct {
	// Token is the Earthdata bearer token. Without it calls fail with NotConfigured.
	Token string

	// BaseURL is the Harmony endpoint (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient provider.HTTPDoer

	// Timeout for subset requests (default: 30s; subsetting is slow).
	Timeout time.Duration

	// Registry receives call outcomes for health reporting.
	Registry *resilience.Registry

	// Metrics records request latency. Optional.
	Metrics provider.RequestRecorder

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Harmony API client.
type Client struct {
	token   string
	baseURL string
	caller  *provider.Caller
	logger  zerolog.Logger
}

// NewClient creates a new Harmony client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := resilience.DefaultClientConfig(ProviderName)
		rcfg.Timeout = 30 * time.Second
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
		token:   cfg.Token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		caller:  provider.NewCaller(ProviderName, httpClient, health, cfg.Metrics),
		logger:  cfg.Logger,
	}
}

// Configured reports whether a token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

type subsetResponse struct {
	Features []struct {
		Properties struct {
			Data *float64 `json:"data"`
		} `json:"properties"`
	} `json:"features"`
}

// Column returns the latest tropospheric NO2 column at point, in mol/m².
func (c *Client) Column(ctx context.Context, point geo.Point) (float64, bool, error) {
	if !c.Configured() {
		return 0, false, provider.NotConfigured(ProviderName)
	}

	lat := strconv.FormatFloat(point.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(point.Lon, 'f', -1, 64)

	params := url.Values{}
	params.Set("collectionId", CollectionID)
	params.Set("variable", Variable)
	params.Add("subset", fmt.Sprintf("lat(%s:%s)", lat, lat))
	params.Add("subset", fmt.Sprintf("lon(%s:%s)", lon, lon))
	params.Set("outputCrs", "EPSG:4326")
	params.Set("format", "application/json")
	params.Set("temporal", "latest")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return 0, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	var resp subsetResponse
	if err := c.caller.GetJSON(req, "no2_column", &resp); err != nil {
		c.logger.Warn().Err(err).Str("point", point.String()).Msg("harmony request failed")
		return 0, false, err
	}

	if len(resp.Features) == 0 || resp.Features[0].Properties.Data == nil {
		return 0, false, nil
	}
	return *resp.Features[0].Properties.Data, true, nil
}
