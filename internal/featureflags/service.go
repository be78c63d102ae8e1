package featureflags

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/airlens/airlens/internal/provider"
)

// DefaultCacheTTL bounds how long an instance serves overrides written by
// another instance before reloading them.
const DefaultCacheTTL = time.Minute

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Store  Store
	Logger zerolog.Logger

	// CacheTTL overrides DefaultCacheTTL.
	CacheTTL time.Duration

	// Policies are the configured per-domain policies that policy flags
	// override (default: provider.DefaultPolicies).
	Policies provider.Policies
}

// Service resolves flags against a cached snapshot of the stored overrides.
// When the store is unreachable it keeps serving the last snapshot, or the
// configured policies if none was ever loaded.
type Service struct {
	store    Store
	log      zerolog.Logger
	ttl      time.Duration
	policies provider.Policies
	defaults map[string]*Flag

	loads singleflight.Group

	mu        sync.RWMutex
	overrides map[string]*Flag
	loadedAt  time.Time
}

// NewService returns a Service over cfg.Store.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	policies := cfg.Policies
	if policies == nil {
		policies = provider.DefaultPolicies()
	}

	return &Service{
		store:     cfg.Store,
		log:       cfg.Logger,
		ttl:       ttl,
		policies:  policies,
		defaults:  DefaultFlags(policies),
		overrides: map[string]*Flag{},
	}
}

// GetFlag returns the override for key, its default, or nil for an unknown
// key.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if flag, ok := s.snapshot(ctx)[key]; ok {
		return flag
	}
	return s.defaults[key]
}

// GetAllFlags returns every default with stored overrides applied.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	all := maps.Clone(s.defaults)
	maps.Copy(all, s.snapshot(ctx))
	return all
}

// SetFlags stamps and stores flags, then applies them to this instance's
// snapshot. Other instances pick them up on their next reload.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now().UTC()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}
	if err := s.store.Upsert(ctx, flags); err != nil {
		return err
	}

	s.update(func(overrides map[string]*Flag) {
		for _, flag := range flags {
			overrides[flag.Key] = flag
		}
	})
	return nil
}

// ResetFlag deletes the stored override for key so the configured policy
// applies again. It returns ErrFlagNotFound when no override exists.
func (s *Service) ResetFlag(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		return err
	}

	s.update(func(overrides map[string]*Flag) {
		delete(overrides, key)
	})
	return nil
}

// InvalidateCache forces the next read to reload from the store.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

// Policy returns the effective degrade policy for domain: the policy flag
// when set to a valid value, otherwise the configured policy.
func (s *Service) Policy(ctx context.Context, domain provider.Domain) provider.Policy {
	return s.GetFlag(ctx, PolicyFlagKey(domain)).PolicyValue(s.policies.For(domain))
}

// Policies returns the effective policy of every domain.
func (s *Service) Policies(ctx context.Context) provider.Policies {
	out := make(provider.Policies, len(provider.Domains))
	for _, domain := range provider.Domains {
		out[domain] = s.Policy(ctx, domain)
	}
	return out
}

// snapshot returns the cached overrides, reloading them once they are older
// than the TTL. Concurrent reloads share one store call.
func (s *Service) snapshot(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	overrides, fresh := s.overrides, time.Since(s.loadedAt) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return overrides
	}

	loaded, err, _ := s.loads.Do("overrides", func() (any, error) {
		s.mu.RLock()
		current, fresh := s.overrides, time.Since(s.loadedAt) < s.ttl
		s.mu.RUnlock()
		if fresh {
			return current, nil
		}

		flags, err := s.store.List(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.overrides, s.loadedAt = flags, time.Now()
		s.mu.Unlock()
		return flags, nil
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load feature flags, serving cached values")
		return overrides
	}
	return loaded.(map[string]*Flag)
}

// update applies fn to a copy of the snapshot so maps already handed to
// readers never change.
func (s *Service) update(fn func(map[string]*Flag)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.overrides)
	if next == nil {
		next = map[string]*Flag{}
	}
	fn(next)
	s.overrides = next
}

var _ provider.PolicySource = (*Service)(nil)
