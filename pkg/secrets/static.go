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

package secrets

import (
	"context"
)

// StaticProvider serves material from configuration. Intended for
// development and tests; production deployments should use the Vault
// provider.
type StaticProvider struct {
	material *Material
}

// NewStaticProvider creates a provider serving the given material.
func NewStaticProvider(material *Material) (*StaticProvider, error) {
	if err := material.Validate(); err != nil {
		return nil, err
	}
	return &StaticProvider{material: material}, nil
}

// Material returns the configured secrets.
func (p *StaticProvider) Material(ctx context.Context) (*Material, error) {
	return p.material, nil
}

// Close is a no-op for the static provider.
func (p *StaticProvider) Close() error {
	return nil
}
