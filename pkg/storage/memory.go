// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-sovereign.
//
// go-sovereign is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package storage

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryBackend provides an in-memory storage implementation.
// Expired entries are reaped lazily on access and eagerly by Cleanup.
// Thread-safe using a read-write mutex.
type MemoryBackend struct {
	data   map[string]*entry
	mu     sync.RWMutex
	closed bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() (Backend, error) {
	return &MemoryBackend{
		data: make(map[string]*entry),
	}, nil
}

// NewMemory creates a new in-memory storage backend.
// This is a convenience function that panics on error (which should never happen).
func NewMemory() Backend {
	backend, err := NewMemoryBackend()
	if err != nil {
		panic("failed to create memory backend: " + err.Error())
	}
	return backend
}

// Get retrieves the value for the given key.
func (m *MemoryBackend) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	e, exists := m.data[key]
	if !exists || e.expired(time.Now()) {
		return nil, ErrNotFound
	}

	// Return a copy to prevent modification
	result := make([]byte, len(e.value))
	copy(result, e.value)
	return result, nil
}

// Put stores the value for the given key.
func (m *MemoryBackend) Put(key string, value []byte, opts *Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.data[key] = newEntry(value, opts)
	return nil
}

// PutIf stores the value only if the current value matches prev.
func (m *MemoryBackend) PutIf(key string, value, prev []byte, opts *Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	e, exists := m.data[key]
	if exists && e.expired(time.Now()) {
		delete(m.data, key)
		exists = false
	}

	if prev == nil {
		if exists {
			return ErrConflict
		}
	} else {
		if !exists || !bytes.Equal(e.value, prev) {
			return ErrConflict
		}
	}

	m.data[key] = newEntry(value, opts)
	return nil
}

// Consume atomically retrieves and deletes the value for the given key.
func (m *MemoryBackend) Consume(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	e, exists := m.data[key]
	if !exists {
		return nil, ErrNotFound
	}
	delete(m.data, key)
	if e.expired(time.Now()) {
		return nil, ErrNotFound
	}

	return e.value, nil
}

// Delete removes the key and its value from storage.
func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	e, exists := m.data[key]
	if !exists {
		return ErrNotFound
	}
	delete(m.data, key)
	if e.expired(time.Now()) {
		return ErrNotFound
	}
	return nil
}

// List returns all live keys with the given prefix.
func (m *MemoryBackend) List(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	now := time.Now()
	var keys []string
	for key, e := range m.data {
		if e.expired(now) {
			continue
		}
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Exists checks if a key exists in storage.
func (m *MemoryBackend) Exists(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	e, exists := m.data[key]
	return exists && !e.expired(time.Now()), nil
}

// TTL returns the remaining lifetime of the key.
func (m *MemoryBackend) TTL(key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrClosed
	}

	e, exists := m.data[key]
	if !exists {
		return 0, ErrNotFound
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	remaining := time.Until(e.expiresAt)
	if remaining <= 0 {
		return 0, ErrNotFound
	}
	return remaining, nil
}

// Cleanup removes all expired entries. Intended to be called
// periodically by a maintenance goroutine.
func (m *MemoryBackend) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0
	}

	now := time.Now()
	removed := 0
	for key, e := range m.data {
		if e.expired(now) {
			delete(m.data, key)
			removed++
		}
	}
	return removed
}

// Close releases any resources held by the backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.data = nil
	return nil
}

// New creates a new in-memory storage backend.
// This is a convenience function for testing and development.
func New() Backend {
	return NewMemory()
}

func newEntry(value []byte, opts *Options) *entry {
	data := make([]byte, len(value))
	copy(data, value)
	e := &entry{value: data}
	if opts != nil && opts.TTL > 0 {
		e.expiresAt = time.Now().Add(opts.TTL)
	}
	return e
}
