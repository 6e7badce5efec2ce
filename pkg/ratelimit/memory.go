package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count     int
	expiresAt time.Time
}

// MemoryStore keeps windows in process memory. It is the default when no
// Redis address is configured and is only correct for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Attempt(_ context.Context, key string, maxAttempts int, decay time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	w := s.live(key, now)
	if w == nil {
		w = &window{expiresAt: now.Add(decay)}
		s.windows[key] = w
	}
	if w.count >= maxAttempts {
		return false, nil
	}
	w.count++
	return true, nil
}

func (s *MemoryStore) Attempts(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w := s.live(key, s.now()); w != nil {
		return w.count, nil
	}
	return 0, nil
}

func (s *MemoryStore) AvailableIn(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if w := s.live(key, now); w != nil {
		return w.expiresAt.Sub(now), nil
	}
	return 0, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Prune drops expired windows and reports how many were removed.
func (s *MemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.expiresAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

// live returns the window for key, discarding it if it has expired. Callers
// hold s.mu.
func (s *MemoryStore) live(key string, now time.Time) *window {
	w, ok := s.windows[key]
	if !ok {
		return nil
	}
	if !now.Before(w.expiresAt) {
		delete(s.windows, key)
		return nil
	}
	return w
}
