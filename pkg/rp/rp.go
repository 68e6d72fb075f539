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

// Package rp registers the relying parties the engine derives
// pairwise identifiers for, along with the profile fields each one is
// allowed to request.
package rp

import (
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned when the relying party is not registered.
	ErrNotFound = errors.New("rp: relying party not registered")

	// ErrAlreadyExists is returned when registering a duplicate ID.
	ErrAlreadyExists = errors.New("rp: relying party already registered")

	// ErrInvalid is returned for a relying party without an ID.
	ErrInvalid = errors.New("rp: relying party ID is required")
)

// RelyingParty describes a registered service.
type RelyingParty struct {
	// ID is the relying party identifier, typically its domain.
	ID string `json:"id" yaml:"id" mapstructure:"id"`

	// Name is the human-readable service name.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// RequestedFields are the profile fields the service requests.
	// Disclosure never exceeds this list.
	RequestedFields []string `json:"requested_fields" yaml:"requested_fields" mapstructure:"requested_fields"`
}

// Registry holds registered relying parties. Thread-safe.
type Registry struct {
	mu      sync.RWMutex
	parties map[string]*RelyingParty
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parties: make(map[string]*RelyingParty)}
}

// NewRegistryFrom creates a registry preloaded with the given parties.
func NewRegistryFrom(parties []RelyingParty) (*Registry, error) {
	registry := NewRegistry()
	for i := range parties {
		if err := registry.Register(&parties[i]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a relying party.
func (r *Registry) Register(party *RelyingParty) error {
	if party == nil || party.ID == "" {
		return ErrInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parties[party.ID]; exists {
		return ErrAlreadyExists
	}
	r.parties[party.ID] = party
	return nil
}

// Get returns the relying party with the given ID.
func (r *Registry) Get(id string) (*RelyingParty, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	party, exists := r.parties[id]
	if !exists {
		return nil, ErrNotFound
	}
	return party, nil
}

// List returns all registered relying party IDs.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.parties))
	for id := range r.parties {
		ids = append(ids, id)
	}
	return ids
}
