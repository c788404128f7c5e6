// Package cache provides a small in-process key-value store with per-entry
// TTL. It backs the OAuth state store and the pending-connection store.
// Entries are keyed by opaque random tokens and access is put/consume only,
// so losing them on restart is safe; the user simply restarts the connect
// flow.
package cache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// TTLStore is a concurrency-safe map whose entries expire after a fixed TTL.
// A background sweeper removes expired entries; Consume also reports expiry
// so callers can distinguish "never existed" from "existed but too old".
type TTLStore[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewTTLStore creates a store with the given TTL, sweeping every
// sweepInterval.
func NewTTLStore[T any](ttl, sweepInterval time.Duration) *TTLStore[T] {
	s := &TTLStore[T]{
		entries: make(map[string]entry[T]),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Put stores value under key, replacing any previous entry.
func (s *TTLStore[T]) Put(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[T]{value: value, expiresAt: time.Now().Add(s.ttl)}
}

// Consume removes and returns the entry for key. found is false when the key
// was never stored or already consumed; expired is true when the entry
// existed but outlived its TTL. The entry is deleted on any lookup, so a
// state token can never be replayed.
func (s *TTLStore[T]) Consume(key string) (value T, found bool, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return value, false, false
	}
	delete(s.entries, key)

	if time.Now().After(e.expiresAt) {
		return value, false, true
	}
	return e.value, true, false
}

// Peek returns the entry for key without consuming it.
func (s *TTLStore[T]) Peek(key string) (value T, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return value, false
	}
	return e.value, true
}

// Delete removes the entry for key if present.
func (s *TTLStore[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of live entries.
func (s *TTLStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the background sweeper.
func (s *TTLStore[T]) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *TTLStore[T]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
