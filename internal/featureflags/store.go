package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when no override is stored for a key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Store persists flag overrides. Keys without a stored override fall back to
// the service defaults.
type Store interface {
	// List returns every stored override keyed by flag key.
	List(ctx context.Context) (map[string]*Flag, error)

	// Upsert writes all flags or none of them.
	Upsert(ctx context.Context, flags []*Flag) error

	// Delete removes the override for key, returning ErrFlagNotFound when
	// none is stored.
	Delete(ctx context.Context, key string) error
}
