package panel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/airlens/airlens/internal/geo"
)

// ErrSuperseded is returned to a selection that was replaced by a newer one
// before it finished loading.
var ErrSuperseded = errors.New("superseded by a newer selection")

// Session tracks one client's current point selection. A new selection
// cancels the in-flight load and results of older generations are discarded.
type Session struct {
	loader Loader
	now    func() time.Time

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *State
	lastUsed   time.Time
}

// NewSession creates a session over loader.
func NewSession(loader Loader) *Session {
	return newSession(loader, time.Now)
}

func newSession(loader Loader, now func() time.Time) *Session {
	return &Session{
		loader:   loader,
		now:      now,
		lastUsed: now(),
	}
}

// Select loads point as the session's new selection. It returns ErrSuperseded
// when another Select started before this one finished.
func (s *Session) Select(ctx context.Context, point geo.Point) (State, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lastUsed = s.now()
	s.mu.Unlock()
	defer cancel()

	state := s.loader.Load(ctx, point)
	state.Generation = gen

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return State{}, ErrSuperseded
	}
	s.current = &state
	s.cancel = nil
	s.lastUsed = s.now()
	return state, nil
}

// Current returns the last applied state.
func (s *Session) Current() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return State{}, false
	}
	return *s.current, true
}

// Generation returns the number of selections made so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// idle reports whether the session has no load in flight and was last used
// before cutoff.
func (s *Session) idle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel == nil && s.lastUsed.Before(cutoff)
}

// Sessions keeps sessions by client id and evicts idle ones.
type Sessions struct {
	loader  Loader
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	lastSweep time.Time
}

// NewSessions creates a session store. idleTTL defaults to 10 minutes.
func NewSessions(loader Loader, idleTTL time.Duration) *Sessions {
	return newSessions(loader, idleTTL, time.Now)
}

func newSessions(loader Loader, idleTTL time.Duration, now func() time.Time) *Sessions {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Sessions{
		loader:    loader,
		idleTTL:   idleTTL,
		now:       now,
		sessions:  make(map[string]*Session),
		lastSweep: now(),
	}
}

// Get returns the session for id, creating it if needed.
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.sweepLocked(now)
	}

	session, ok := s.sessions[id]
	if !ok {
		session = newSession(s.loader, s.now)
		s.sessions[id] = session
	}
	return session
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) sweepLocked(now time.Time) {
	cutoff := now.Add(-s.idleTTL)
	for id, session := range s.sessions {
		if session.idle(cutoff) {
			delete(s.sessions, id)
		}
	}
	s.lastSweep = now
}
