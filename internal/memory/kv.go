// Package memory tracks which pipeline units have been processed or are in
// flight, keyed by content fingerprints. It also provides the narrow
// key-value abstraction the blacklist registry shares.
package memory

import (
	"context"
	"sync"
	"time"
)

// KV is the storage abstraction behind the fingerprint store and the
// blacklist registry. Implementations must make SetNX atomic: under
// concurrent callers exactly one write to an absent key succeeds.
type KV interface {
	// Get returns the value for key, or ok=false when absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes key unconditionally. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX writes key only if it is absent, returning whether it was set.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the live keys with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

type mapEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

// MapKV is the in-process KV used by default and in tests. Expiry is lazy:
// expired entries are dropped when touched or listed.
type MapKV struct {
	mu      sync.Mutex
	entries map[string]mapEntry

	nowFunc func() time.Time
}

// NewMapKV returns an empty in-process store.
func NewMapKV() *MapKV {
	return &MapKV{
		entries: make(map[string]mapEntry),
		nowFunc: time.Now,
	}
}

func (m *MapKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MapKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.entryLocked(value, ttl)
	return nil
}

func (m *MapKV) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.liveLocked(key); ok {
		return false, nil
	}
	m.entries[key] = m.entryLocked(value, ttl)
	return true, nil
}

func (m *MapKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MapKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.entries {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			continue
		}
		if _, ok := m.liveLocked(k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *MapKV) entryLocked(value []byte, ttl time.Duration) mapEntry {
	e := mapEntry{value: value}
	if ttl > 0 {
		e.expiresAt = m.nowFunc().Add(ttl)
	}
	return e
}

func (m *MapKV) liveLocked(key string) (mapEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return mapEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.nowFunc().Before(e.expiresAt) {
		delete(m.entries, key)
		return mapEntry{}, false
	}
	return e, true
}
