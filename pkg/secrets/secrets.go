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

// Package secrets supplies the issuer secret material the identity
// engine depends on: the keyed-derivation secret for pairwise
// identifiers, the salt mixed into global identifier minting and the
// signing key for relying-party access tokens.
package secrets

import (
	"context"
	"errors"
)

var (
	// ErrIncompleteMaterial is returned when a provider resolves
	// material with a missing component.
	ErrIncompleteMaterial = errors.New("secrets: incomplete material")

	// ErrUnavailable is returned when the secrets backend cannot be reached.
	ErrUnavailable = errors.New("secrets: unavailable")
)

// Material holds the issuer secrets. All fields are required.
type Material struct {
	// KDFKey is the input keying material for pairwise derivation.
	// Rotating it changes every derived pairwise identifier.
	KDFKey []byte

	// DIDSalt is mixed into global identifier minting.
	DIDSalt []byte

	// TokenKey signs relying-party access tokens (HMAC-SHA256).
	TokenKey []byte
}

// Validate checks that every component is present.
func (m *Material) Validate() error {
	if m == nil || len(m.KDFKey) == 0 || len(m.DIDSalt) == 0 || len(m.TokenKey) == 0 {
		return ErrIncompleteMaterial
	}
	return nil
}

// Provider resolves issuer secret material.
type Provider interface {
	// Material returns the current issuer secrets.
	Material(ctx context.Context) (*Material, error)

	// Close releases any resources held by the provider.
	Close() error
}
