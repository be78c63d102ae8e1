package provider

import (
	"context"
	"fmt"
	"strings"
)

// Domain names one independently failing data source.
type Domain string

// Data domains.
const (
	DomainStations    Domain = "stations"
	DomainWeather     Domain = "weather"
	DomainSatellite   Domain = "satellite"
	DomainPredictions Domain = "predictions"
)

// Domains lists every domain in display order.
var Domains = []Domain{DomainStations, DomainWeather, DomainSatellite, DomainPredictions}

// Policy decides what a domain does when its upstream fails.
type Policy string

const (
	// Fail surfaces upstream failures as request errors.
	Fail Policy = "fail"

	// Degrade substitutes a labeled placeholder and keeps the response successful.
	Degrade Policy = "degrade"
)

// ParsePolicy parses "fail" or "degrade" (case-insensitive).
func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case Fail:
		return Fail, nil
	case Degrade:
		return Degrade, nil
	default:
		return "", fmt.Errorf("unknown policy %q", raw)
	}
}

// Policies maps each domain to its static policy.
type Policies map[Domain]Policy

// DefaultPolicies keeps stations, weather and predictions strict and lets the
// experimental satellite feed degrade.
func DefaultPolicies() Policies {
	return Policies{
		DomainStations:    Fail,
		DomainWeather:     Fail,
		DomainSatellite:   Degrade,
		DomainPredictions: Fail,
	}
}

// For returns the policy for domain, Fail when unset.
func (p Policies) For(domain Domain) Policy {
	if policy, ok := p[domain]; ok {
		return policy
	}
	return Fail
}

// PolicySource resolves the effective policy for a domain at call time.
type PolicySource interface {
	Policy(ctx context.Context, domain Domain) Policy
}

// Policy implements PolicySource with the static map.
func (p Policies) Policy(_ context.Context, domain Domain) Policy {
	return p.For(domain)
}
