package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"
)

type memoryEntry struct {
	raw     []byte
	counter int64
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// sweepEvery is how many writes pass between expiry sweeps.
const sweepEvery = 256

// Memory is a process-scoped cache. Each instance owns its own map.
// Expired entries are dropped when read and by a sweep every sweepEvery writes,
// so keys that are never read again (rate-limit windows) do not pile up.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	writes  int
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}, now: time.Now}
}

// WithClock replaces the time source, used by tests to step past TTLs.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
	return m
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && e.expired(m.now()) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok || e.raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(e.raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{raw: raw}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries[key] = e
	m.afterWriteLocked()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return removed, err
		}
		if ok {
			delete(m.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.entries[key]
	if !ok || e.expired(now) {
		e = memoryEntry{}
		if ttl > 0 {
			e.expires = now.Add(ttl)
		}
	}
	e.counter++
	m.entries[key] = e
	m.afterWriteLocked()
	return e.counter, nil
}

func (m *Memory) afterWriteLocked() {
	m.writes++
	if m.writes < sweepEvery {
		return
	}
	m.writes = 0
	now := m.now()
	for key, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, key)
		}
	}
}
