package featureflags

import (
	"context"
	"sync"
)

// MemoryStore keeps overrides in process memory. The API uses it when no
// database is configured, so overrides are per instance and lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	flags map[string]Flag
}

// NewMemoryStore returns a store holding seed.
func NewMemoryStore(seed ...*Flag) *MemoryStore {
	s := &MemoryStore{flags: make(map[string]Flag, len(seed))}
	for _, flag := range seed {
		s.flags[flag.Key] = *flag
	}
	return s
}

// List returns copies of the stored overrides.
func (s *MemoryStore) List(context.Context) (map[string]*Flag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*Flag, len(s.flags))
	for key, flag := range s.flags {
		out[key] = &flag
	}
	return out, nil
}

// Upsert stores flags under a single lock.
func (s *MemoryStore) Upsert(_ context.Context, flags []*Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, flag := range flags {
		s.flags[flag.Key] = *flag
	}
	return nil
}

// Delete drops the override for key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(s.flags, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
