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

// Package pairwise derives per-relying-party identifiers from a global
// identifier with a keyed one-way function, so two relying parties
// cannot correlate the same subject by comparing identifiers.
package pairwise

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/bluele/gcache"
	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/hkdf"

	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
)

const (
	// derivedLen is the octet length of the derived identifier body.
	derivedLen = 32

	// defaultCacheSize bounds the derivation memoization cache.
	defaultCacheSize = 4096
)

// ErrInvalidInput is returned when the global identifier or relying
// party is empty.
var ErrInvalidInput = errors.New("pairwise: global identifier and relying party are required")

// Deriver computes pairwise identifiers. Derivations are memoized in
// an LRU cache; the cache holds only derived identifiers, never the
// keying material.
type Deriver struct {
	secrets secrets.Provider
	cache   gcache.Cache
}

// DeriverParams contains the dependencies for creating a Deriver.
type DeriverParams struct {
	// Secrets provides the derivation key. Required.
	Secrets secrets.Provider

	// CacheSize bounds the memoization cache. Defaults to 4096.
	CacheSize int
}

// NewDeriver creates a pairwise identifier deriver.
func NewDeriver(params *DeriverParams) (*Deriver, error) {
	if params == nil || params.Secrets == nil {
		return nil, errors.New("pairwise: secrets provider is required")
	}
	size := params.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Deriver{
		secrets: params.Secrets,
		cache:   gcache.New(size).LRU().Build(),
	}, nil
}

// Derive computes the pairwise identifier for the subject at the given
// relying party. Deterministic: the same inputs always produce the
// same identifier. Distinct relying parties and distinct subjects
// produce unlinkable identifiers.
func (d *Deriver) Derive(ctx context.Context, globalID, relyingParty string) (string, error) {
	if globalID == "" || relyingParty == "" {
		return "", ErrInvalidInput
	}

	cacheKey := globalID + "|" + relyingParty
	if cached, err := d.cache.Get(cacheKey); err == nil {
		return cached.(string), nil
	}

	material, err := d.secrets.Material(ctx)
	if err != nil {
		return "", fmt.Errorf("pairwise: resolve secrets: %w", err)
	}

	reader := hkdf.New(sha256.New, material.KDFKey, []byte(globalID), []byte(relyingParty))
	derived := make([]byte, derivedLen)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return "", fmt.Errorf("pairwise: derive: %w", err)
	}

	encoded, err := multibase.Encode(multibase.Base58BTC, derived)
	if err != nil {
		return "", fmt.Errorf("pairwise: encode: %w", err)
	}

	pairwiseID := identity.PairwiseDIDMethod + encoded
	_ = d.cache.Set(cacheKey, pairwiseID)
	return pairwiseID, nil
}
