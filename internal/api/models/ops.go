package models

// Health is the body of /v1/ops/health and /v1/ops/ready.
type Health struct {
	Status    HealthStatus `json:"status"`
	Time      Timestamp    `json:"time"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`

	// Failing maps each failed readiness check to its error.
	Failing map[string]string `json:"failing,omitempty"`
}

// SystemStatus is the admin view of checks, upstreams and degrade policies.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Version    string            `json:"version"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Providers  []ProviderStatus  `json:"providers"`

	// Policies maps each data domain to "fail" or "degrade".
	Policies               map[string]string `json:"policies"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus reports one upstream. Counts cover the breaker's current
// window and reset when it changes state.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}
