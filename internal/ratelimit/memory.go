package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the ledger in process memory. It is consistent only
// within one process; separate instances each keep their own counts.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string][]time.Time)}
}

func (m *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recent := pruned(m.requests[key], now.Add(-window))
	if len(recent) >= limit {
		m.requests[key] = recent
		return false, nil
	}
	m.requests[key] = append(recent, now)
	return true, nil
}

// Evict removes keys with no entries inside the window ending at now.
func (m *MemoryStore) Evict(now time.Time, window time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := now.Add(-window)
	for key, times := range m.requests {
		fresh := pruned(times, cutoff)
		if len(fresh) == 0 {
			delete(m.requests, key)
			removed++
			continue
		}
		m.requests[key] = fresh
	}
	return removed
}

// RunEviction calls Evict every window until ctx is done.
func (m *MemoryStore) RunEviction(ctx context.Context, window time.Duration) {
	if window <= 0 {
		window = DefaultWindow
	}
	ticker := time.NewTicker(window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Evict(now, window)
		}
	}
}

func (m *MemoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// pruned returns the timestamps strictly after cutoff, preserving order.
func pruned(times []time.Time, cutoff time.Time) []time.Time {
	var recent []time.Time
	for _, t := range times {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	return recent
}
