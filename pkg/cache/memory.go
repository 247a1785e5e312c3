package cache

import (
	"context"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time // zero means no expiry
}

func (e entry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a thread-safe in-memory Cache. Expired entries are dropped
// lazily on Get and swept periodically by the optional janitor.
type Memory[K comparable, V any] struct {
	mu      sync.RWMutex
	items   map[K]entry[V]
	maxSize int

	stopJanitor chan struct{}
	stopOnce    sync.Once
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	maxSize       int
	sweepInterval time.Duration
}

// WithMaxSize caps the number of entries. When full, Set evicts the
// entry closest to expiry (or an arbitrary one if nothing expires).
func WithMaxSize(n int) MemoryOption {
	return func(c *memoryConfig) { c.maxSize = n }
}

// WithSweepInterval starts a background janitor that removes expired
// entries every interval. Close must be called to stop it.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.sweepInterval = d }
}

// NewMemory creates an in-memory cache.
func NewMemory[K comparable, V any](opts ...MemoryOption) *Memory[K, V] {
	cfg := memoryConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	m := &Memory[K, V]{
		items:       make(map[K]entry[V]),
		maxSize:     cfg.maxSize,
		stopJanitor: make(chan struct{}),
	}
	if cfg.sweepInterval > 0 {
		go m.janitor(cfg.sweepInterval)
	}
	return m
}

// Get implements Cache.
func (m *Memory[K, V]) Get(_ context.Context, key K) (V, bool) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if e.expired(time.Now()) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return zero, false
	}
	return e.value, true
}

// Set implements Cache.
func (m *Memory[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSize > 0 && len(m.items) >= m.maxSize {
		if _, exists := m.items[key]; !exists {
			m.evictLocked()
		}
	}
	m.items[key] = entry[V]{value: value, expiresAt: expiresAt}
}

// evictLocked drops the entry with the earliest expiry, falling back to
// an arbitrary entry when none expire. Caller holds m.mu.
func (m *Memory[K, V]) evictLocked() {
	var (
		victim   K
		earliest time.Time
		found    bool
	)
	for k, e := range m.items {
		if !found {
			victim, earliest, found = k, e.expiresAt, true
			continue
		}
		if !e.expiresAt.IsZero() && (earliest.IsZero() || e.expiresAt.Before(earliest)) {
			victim, earliest = k, e.expiresAt
		}
	}
	if found {
		delete(m.items, victim)
	}
}

// Delete implements Cache.
func (m *Memory[K, V]) Delete(_ context.Context, key K) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Len implements Cache.
func (m *Memory[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Clear implements Cache.
func (m *Memory[K, V]) Clear() {
	m.mu.Lock()
	m.items = make(map[K]entry[V])
	m.mu.Unlock()
}

// Close stops the janitor goroutine, if any.
func (m *Memory[K, V]) Close() {
	m.stopOnce.Do(func() { close(m.stopJanitor) })
}

func (m *Memory[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopJanitor:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, e := range m.items {
				if e.expired(now) {
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
