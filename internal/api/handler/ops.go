// Package handler provides HTTP handlers for the AirLens API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/provider/resilience"
)

// readinessTimeout bounds all readiness checks together.
const readinessTimeout = 3 * time.Second

// ReadinessCheck is a named dependency probe, e.g. a database ping.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// PolicyLister reports the effective per-domain policies.
type PolicyLister interface {
	Policies(ctx context.Context) provider.Policies
}

// OpsConfig holds the OpsHandler's dependencies.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry supplies provider health. Optional.
	Registry *resilience.Registry

	// Checks run on readiness and status requests.
	Checks []ReadinessCheck

	// Policies reports effective degrade policies. Optional.
	Policies PolicyLister
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	checks    []ReadinessCheck
	policies  PolicyLister
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		checks:    cfg.Checks,
		policies:  cfg.Policies,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Any failing
// dependency check answers 503.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	status := http.StatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
			status = http.StatusServiceUnavailable
			if health.Failing == nil {
				health.Failing = map[string]string{}
			}
			health.Failing[s.Name] = *s.Detail
		}
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.version,
		Subsystems: h.runChecks(r.Context()),
		Providers:  []models.ProviderStatus{},
		Policies:   map[string]string{},
	}

	if h.registry != nil {
		for _, health := range h.registry.All() {
			status.Providers = append(status.Providers, providerStatus(health))
		}
	}

	if h.policies != nil {
		for domain, policy := range h.policies.Policies(r.Context()) {
			status.Policies[string(domain)] = string(policy)
		}
		for _, domain := range provider.Domains {
			if status.Policies[string(domain)] == string(provider.Degrade) {
				status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "policy."+string(domain))
			}
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worse(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		status.Status = worse(status.Status, p.Status)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	subsystems := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, check := range h.checks {
		s := models.SubsystemStatus{Name: check.Name, Status: models.HealthStatusOK}
		if err := check.Check(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		subsystems = append(subsystems, s)
	}
	return subsystems
}

func providerStatus(health *resilience.Health) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            health.Name,
		CircuitState:        health.CircuitState.String(),
		Requests:            health.Counts.Requests,
		ConsecutiveFailures: health.Counts.ConsecutiveFailures,
	}
	switch health.Condition() {
	case resilience.Unhealthy:
		ps.Status = models.HealthStatusFail
	case resilience.Degraded:
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusOK
	}
	if health.LastSuccessAt != nil {
		ts := models.Timestamp(*health.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if health.LastFailureAt != nil {
		ts := models.Timestamp(*health.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if health.LastError != "" {
		msg := health.LastError
		ps.Message = &msg
	}
	return ps
}

// worse returns the more severe of two statuses.
func worse(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
