package cache

import (
	"sync"
	"time"
)

// MemCache is a small in-memory key/value store with per-item TTL. It backs
// the in-process connection rate limiter when Redis is not configured.
// A background sweep removes expired items when NewMemCache is given a
// positive cleanup interval.
type MemCache struct {
	mu    sync.Mutex
	items map[string]*item
	stop  chan struct{}
	wg    sync.WaitGroup
}

type item struct {
	value     int64
	expiresAt time.Time // zero means no expiration
}

// NewMemCache creates a MemCache. If cleanupInterval > 0 a goroutine
// periodically evicts expired items until Close is called.
func NewMemCache(cleanupInterval time.Duration) *MemCache {
	m := &MemCache{
		items: make(map[string]*item),
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.cleanup()
				case <-m.stop:
					return
				}
			}
		}()
	}
	return m
}

// Increment adds delta to the counter at key and returns the new value.
// A missing or expired counter starts at zero and picks up the given TTL.
func (m *MemCache) Increment(key string, delta int64, ttl time.Duration) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	it, ok := m.items[key]
	if !ok || it.expired(now) {
		it = &item{}
		if ttl > 0 {
			it.expiresAt = now.Add(ttl)
		}
		m.items[key] = it
	}
	it.value += delta
	return it.value
}

// Get returns the counter at key, or false when absent or expired.
func (m *MemCache) Get(key string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || it.expired(time.Now()) {
		return 0, false
	}
	return it.value, true
}

// Delete removes the counter at key.
func (m *MemCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

// Len returns the number of live items.
func (m *MemCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	n := 0
	for _, it := range m.items {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// Close stops the background sweep.
func (m *MemCache) Close() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	m.wg.Wait()
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && now.After(it.expiresAt)
}

func (m *MemCache) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, it := range m.items {
		if it.expired(now) {
			delete(m.items, key)
		}
	}
}
