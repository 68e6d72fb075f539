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

// Package storage provides an abstraction layer for key-value storage
// backends with per-entry expiry and the atomic primitives the identity
// lifecycle depends on: single-use consumption and conditional writes.
package storage

import (
	"time"
)

// Backend defines the interface for storage backends.
// All implementations must be thread-safe.
type Backend interface {
	// Get retrieves the value for the given key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(key string) ([]byte, error)

	// Put stores the value for the given key with optional metadata.
	// If the key already exists, it will be overwritten.
	Put(key string, value []byte, opts *Options) error

	// PutIf stores the value only if the current stored value is
	// byte-equal to prev. A nil prev requires the key to be absent.
	// Returns ErrConflict when the precondition fails. This is the
	// compare-and-swap primitive behind signature counter updates.
	PutIf(key string, value, prev []byte, opts *Options) error

	// Consume atomically retrieves and deletes the value for the given
	// key. Under concurrent callers exactly one receives the value; the
	// rest receive ErrNotFound. Expired entries behave as absent.
	Consume(key string) ([]byte, error)

	// Delete removes the key and its value from storage.
	// Returns ErrNotFound if the key does not exist.
	Delete(key string) error

	// List returns all keys with the given prefix.
	// If prefix is empty, all live keys are returned.
	List(prefix string) ([]string, error)

	// Exists checks if a key exists in storage.
	Exists(key string) (bool, error)

	// TTL returns the remaining time to live for the key. Entries
	// stored without expiry return zero. Returns ErrNotFound for
	// absent or expired keys.
	TTL(key string) (time.Duration, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Options contains optional parameters for storage operations.
type Options struct {
	// TTL is the entry lifetime. Zero means no expiry.
	TTL time.Duration

	// Metadata contains additional key-value pairs for storage operations
	Metadata map[string]string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Metadata: make(map[string]string),
	}
}

// WithTTL returns Options carrying the given lifetime.
func WithTTL(ttl time.Duration) *Options {
	return &Options{TTL: ttl}
}
