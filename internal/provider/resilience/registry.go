package resilience

import (
	"slices"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Condition summarizes a provider for the ops status endpoint.
type Condition string

const (
	Healthy   Condition = "healthy"
	Degraded  Condition = "degraded"
	Unhealthy Condition = "unhealthy"
)

// Health is a snapshot of one upstream provider.
type Health struct {
	Name string

	// CircuitState is StateClosed for providers registered without a client.
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// LastCallFailed is true when the most recent recorded outcome was a failure.
	LastCallFailed bool
}

// Condition reports unhealthy while the breaker is open and degraded while it
// probes. A closed breaker is still degraded when the latest call failed.
func (h *Health) Condition() Condition {
	switch h.CircuitState {
	case gobreaker.StateOpen:
		return Unhealthy
	case gobreaker.StateHalfOpen:
		return Degraded
	}
	if h.LastCallFailed {
		return Degraded
	}
	return Healthy
}

// Registry collects breaker state and call outcomes per provider name. It
// implements provider.HealthRecorder.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
}

type entry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
	lastFailed    bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]*entry),
	}
}

// Register adds or replaces a provider. client may be nil for sources that
// are not called through a Client, such as the prediction warehouse.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		e.client = client
		return
	}
	r.providers[name] = &entry{client: client}
}

// RecordSuccess notes a successful call. Unknown names are registered
// without a client.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(name)
	now := time.Now()
	e.lastSuccessAt = &now
	e.lastFailed = false
}

// RecordFailure notes a failed call and keeps its message.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entry(name)
	now := time.Now()
	e.lastFailureAt = &now
	e.lastFailed = true
	if err != nil {
		e.lastError = err.Error()
	}
}

// entry must be called with mu held for writing.
func (r *Registry) entry(name string) *entry {
	e, ok := r.providers[name]
	if !ok {
		e = &entry{}
		r.providers[name] = e
	}
	return e
}

// Health returns the snapshot for name, or nil when it is not registered.
func (r *Registry) Health(name string) *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[name]
	if !ok {
		return nil
	}
	return e.snapshot(name)
}

// All returns every provider's snapshot ordered by name.
func (r *Registry) All() []*Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Health, 0, len(r.providers))
	for _, name := range r.names() {
		out = append(out, r.providers[name].snapshot(name))
	}
	return out
}

// Names returns the registered provider names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (e *entry) snapshot(name string) *Health {
	h := &Health{
		Name:           name,
		CircuitState:   gobreaker.StateClosed,
		LastSuccessAt:  e.lastSuccessAt,
		LastFailureAt:  e.lastFailureAt,
		LastError:      e.lastError,
		LastCallFailed: e.lastFailed,
	}
	if e.client != nil {
		h.CircuitState = e.client.CircuitBreakerState()
		h.Counts = e.client.CircuitBreakerCounts()
	}
	return h
}
