// Package featureflags stores runtime flags that override the per-domain
// degrade policies without a redeploy.
package featureflags

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/airlens/airlens/internal/provider"
)

// ErrInvalidFlagValue is returned when a flag update carries a value the flag
// cannot hold.
var ErrInvalidFlagValue = errors.New("invalid feature flag value")

// PolicyFlagPrefix prefixes the per-domain degrade policy flags, for example
// "policy.satellite".
const PolicyFlagPrefix = "policy."

// PolicyFlagKey returns the flag key holding the policy for domain.
func PolicyFlagKey(domain provider.Domain) string {
	return PolicyFlagPrefix + string(domain)
}

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// StringValue returns the flag value as a string.
// Returns the default value if the flag is nil, not found, or not a string.
func (f *Flag) StringValue(defaultValue string) string {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case string:
		return v
	default:
		return defaultValue
	}
}

// PolicyValue returns the flag value as a degrade policy, or defaultValue when
// the flag is nil or does not hold "fail" or "degrade".
func (f *Flag) PolicyValue(defaultValue provider.Policy) provider.Policy {
	raw := f.StringValue("")
	if raw == "" {
		return defaultValue
	}
	policy, err := provider.ParsePolicy(raw)
	if err != nil {
		return defaultValue
	}
	return policy
}

// ValidateUpdate accepts only policy flags of a known domain holding "fail"
// or "degrade" (any case).
func ValidateUpdate(update FlagUpdate) error {
	if strings.TrimSpace(update.Key) == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidFlagValue)
	}
	if !strings.HasPrefix(update.Key, PolicyFlagPrefix) {
		return fmt.Errorf("%w: unknown flag %q", ErrInvalidFlagValue, update.Key)
	}

	domain := provider.Domain(strings.TrimPrefix(update.Key, PolicyFlagPrefix))
	known := false
	for _, d := range provider.Domains {
		if d == domain {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: unknown domain %q", ErrInvalidFlagValue, domain)
	}

	raw, ok := update.Value.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be a string", ErrInvalidFlagValue, update.Key)
	}
	if _, err := provider.ParsePolicy(raw); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidFlagValue, update.Key, err)
	}
	return nil
}

// DefaultFlags returns one policy flag per domain, seeded from base.
func DefaultFlags(base provider.Policies) map[string]*Flag {
	now := time.Now()
	flags := make(map[string]*Flag, len(provider.Domains))
	for _, domain := range provider.Domains {
		key := PolicyFlagKey(domain)
		flags[key] = &Flag{
			Key:       key,
			Value:     string(base.For(domain)),
			UpdatedAt: now,
		}
	}
	return flags
}
