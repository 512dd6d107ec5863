package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the counter state of one client for the current window.
type Window struct {
	Key     string
	Count   int
	ResetAt time.Time
}

// Store counts hits per key in fixed windows. Increment must be atomic per
// key: it opens a new window when the stored one has expired at now.
type Store interface {
	Increment(ctx context.Context, key string, now time.Time, window time.Duration) (Window, error)
}

// MemoryStore keeps windows in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]Window
	// sweepEvery bounds how often expired windows are dropped.
	sweepEvery time.Duration
	lastSweep  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows:    make(map[string]Window),
		sweepEvery: time.Minute,
	}
}

func (m *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.ResetAt) {
		w = Window{Key: key, ResetAt: now.Add(window)}
	}
	w.Count++
	m.windows[key] = w
	return w, nil
}

// Len returns the number of tracked keys, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.sweepEvery {
		return
	}
	m.lastSweep = now
	for k, w := range m.windows {
		if !now.Before(w.ResetAt) {
			delete(m.windows, k)
		}
	}
}
