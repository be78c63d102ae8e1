package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling upstream while the provider's
// breaker is open or its half-open probe slot is taken.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// DefaultUserAgent identifies the service to upstream APIs.
const DefaultUserAgent = "airlens/1.0 (+https://airlens.dev)"

// ClientConfig configures a Client for one upstream provider.
type ClientConfig struct {
	// Name keys the breaker and the provider's Registry entry.
	Name string

	// Timeout bounds each attempt. Default 10s.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a network error, a
	// 5xx or a 429. Zero surfaces the first failure. Only GET and HEAD
	// requests are retried.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Breaker defaults to DefaultBreakerConfig(Name).
	Breaker *BreakerConfig

	// Registry, when set, registers the client under Name.
	Registry *Registry

	// Transport overrides the round tripper.
	Transport http.RoundTripper

	// UserAgent is set on requests that do not carry one.
	UserAgent string

	Logger zerolog.Logger
}

// DefaultClientConfig returns the provider client defaults.
func DefaultClientConfig(name string) ClientConfig {
	breaker := DefaultBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Breaker:         &breaker,
		UserAgent:       DefaultUserAgent,
		Logger:          zerolog.Nop(),
	}
}

// Client wraps an http.Client with a circuit breaker and opt-in retries.
// It implements provider.HTTPDoer.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     ClientConfig
	log     zerolog.Logger
}

// NewClient creates a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	log := cfg.Logger.With().Str("provider", cfg.Name).Logger()

	bcfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		bcfg = *cfg.Breaker
	}
	if bcfg.OnStateChange == nil {
		bcfg.OnStateChange = func(_ string, from, to gobreaker.State) {
			event := log.Info()
			if to == gobreaker.StateOpen {
				event = log.Warn()
			}
			event.Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: newBreaker(bcfg),
		cfg:     cfg,
		log:     log,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Do sends req through the breaker. A 5xx or 429 that outlives its retries is
// returned as a response, not an error, so the caller can read the upstream
// body. The caller closes the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(ctx)
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	retries := c.cfg.MaxRetries
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		retries = 0
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx)

	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil && last != resp {
			last.Body.Close()
		}
		last = resp
	}

	err := backoff.RetryNotify(func() error {
		resp, err := c.attempt(ctx, req)
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case resp != nil:
			keep(resp)
		}
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errThrottled
		}
		return nil
	}, policy, func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Dur("wait", wait).Msg("retrying upstream request")
	})

	if err != nil && last == nil {
		return nil, err
	}
	return last, nil
}

var errThrottled = errors.New("upstream throttled the request")

// attempt runs one round trip inside the breaker. Only 5xx and transport
// errors count as breaker failures.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, &ServerError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
}

// ServerError is a 5xx answer counted against the breaker.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// CircuitBreakerState returns the breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker's counts for its current window.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}
