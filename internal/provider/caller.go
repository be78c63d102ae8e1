package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HealthRecorder receives per-call outcomes. *resilience.Registry implements it.
type HealthRecorder interface {
	RecordSuccess(name string)
	RecordFailure(name string, err error)
}

// RequestRecorder receives per-call latency. *Metrics implements it.
type RequestRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
}

// BodyChecker is implemented by response bodies that can report an upstream
// failure inside a 2xx answer. The returned error counts as a failed call.
type BodyChecker interface {
	CheckBody() error
}

// Caller executes upstream requests for one named provider and normalizes
// every outcome into a *Error.
type Caller struct {
	name    string
	http    HTTPDoer
	health  HealthRecorder
	metrics RequestRecorder
}

// NewCaller creates a caller. health and metrics may be nil.
func NewCaller(name string, doer HTTPDoer, health HealthRecorder, metrics RequestRecorder) *Caller {
	return &Caller{
		name:    name,
		http:    doer,
		health:  health,
		metrics: metrics,
	}
}

// Name returns the provider name.
func (c *Caller) Name() string {
	return c.name
}

// GetJSON executes req and decodes a 2xx JSON body into out. When out is a
// BodyChecker its verdict decides the outcome.
func (c *Caller) GetJSON(req *http.Request, operation string, out any) error {
	start := time.Now()
	err := c.getJSON(req, out)
	c.observe(operation, time.Since(start), err)
	return err
}

func (c *Caller) getJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return Transport(c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Status(c.name, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Decode(c.name, err)
	}
	if checker, ok := out.(BodyChecker); ok {
		return checker.CheckBody()
	}
	return nil
}

// observe records the outcome. A call canceled by its caller says nothing
// about the upstream and is not recorded.
func (c *Caller) observe(operation string, duration time.Duration, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if c.metrics != nil {
		c.metrics.RecordRequest(c.name, operation, duration, err)
	}
	if c.health == nil {
		return
	}
	if err != nil {
		c.health.RecordFailure(c.name, err)
		return
	}
	c.health.RecordSuccess(c.name)
}
