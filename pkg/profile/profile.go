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

// Package profile stores subject attribute maps keyed by global
// identifier. The repository is a narrow collaborator of the
// disclosure filter; claim semantics live in pkg/disclosure.
package profile

import (
	"encoding/json"
	"errors"

	"github.com/jeremyhahn/go-sovereign/pkg/disclosure"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// ErrNotFound is returned when no profile exists for the identifier.
var ErrNotFound = errors.New("profile: not found")

// Repository persists subject profiles.
type Repository interface {
	// Get returns the subject's claims.
	Get(globalID string) (disclosure.Claims, error)

	// Put stores the subject's claims, replacing any existing profile.
	Put(globalID string, claims disclosure.Claims) error

	// Delete removes the subject's profile. Returns ErrNotFound when
	// none exists.
	Delete(globalID string) error
}

// StoreRepository implements Repository over a storage backend.
type StoreRepository struct {
	backend storage.Backend
}

// NewStoreRepository creates a storage-backed profile repository.
func NewStoreRepository(backend storage.Backend) (*StoreRepository, error) {
	if backend == nil {
		return nil, errors.New("profile: storage backend is required")
	}
	return &StoreRepository{backend: backend}, nil
}

// Get returns the subject's claims.
func (r *StoreRepository) Get(globalID string) (disclosure.Claims, error) {
	data, err := r.backend.Get(storage.ProfileKey(globalID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var claims disclosure.Claims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Put stores the subject's claims.
func (r *StoreRepository) Put(globalID string, claims disclosure.Claims) error {
	data, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	return r.backend.Put(storage.ProfileKey(globalID), data, nil)
}

// Delete removes the subject's profile.
func (r *StoreRepository) Delete(globalID string) error {
	if err := r.backend.Delete(storage.ProfileKey(globalID)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
