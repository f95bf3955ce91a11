package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultSweepInterval = 10 * time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. Limits are per instance.
type MemoryStore struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*window

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryStore creates a MemoryStore and starts its sweeper.
// Call Close to stop the sweeper.
func NewMemoryStore(cfg Config) *MemoryStore {
	return newMemoryStore(cfg, defaultSweepInterval)
}

func newMemoryStore(cfg Config, sweepEvery time.Duration) *MemoryStore {
	s := &MemoryStore{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.entries[key]
	if !ok || !now.Before(w.resetAt) {
		s.entries[key] = &window{count: 1, resetAt: now.Add(s.cfg.Window)}
		return true, nil
	}
	if w.count >= s.cfg.Limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok || !s.now().Before(w.resetAt) || w.count == 0 {
		return nil
	}
	w.count--
	return nil
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired windows.
func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.entries {
		if !now.Before(w.resetAt) {
			delete(s.entries, key)
		}
	}
}

// Close stops the sweeper. It matches server.ShutdownFunc.
func (s *MemoryStore) Close(context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}
