// Package cache provides a small in-memory TTL memoizer and the cached
// archive read path built on it. Entries expire on read against an
// injectable clock, so tests control time instead of sleeping.
package cache

import (
	"sync"
	"time"

	"haitimeteo/internal/types"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Memo memoizes loader results per key for a fixed TTL. Concurrent callers
// are safe; a stale entry is reloaded by whichever caller sees it first.
// Loader errors are never cached.
type Memo[K comparable, V any] struct {
	ttl   time.Duration
	clock types.Clock

	mu      sync.Mutex
	entries map[K]entry[V]
}

// NewMemo creates a Memo with the given TTL. If clock is nil,
// types.RealClock is used.
func NewMemo[K comparable, V any](ttl time.Duration, clock types.Clock) *Memo[K, V] {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Memo[K, V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the cached value for key, or invokes load and caches its
// result for the TTL window.
func (m *Memo[K, V]) Get(key K, load func() (V, error)) (V, error) {
	m.mu.Lock()
	now := m.clock.Now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		m.mu.Unlock()
		return e.value, nil
	}
	m.mu.Unlock()

	value, err := load()
	if err != nil {
		var zero V
		return zero, err
	}

	m.mu.Lock()
	m.entries[key] = entry[V]{value: value, expiresAt: m.clock.Now().Add(m.ttl)}
	m.mu.Unlock()

	return value, nil
}

// Invalidate drops every cached entry. Call it after a write that makes
// cached reads stale, such as a collection run.
func (m *Memo[K, V]) Invalidate() {
	m.mu.Lock()
	m.entries = make(map[K]entry[V])
	m.mu.Unlock()
}
