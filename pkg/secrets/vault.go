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
	"encoding/base64"
	"fmt"
	"sync"

	vault "github.com/hashicorp/vault/api"
)

// KV-v2 field names within the secret at the configured path.
const (
	vaultFieldKDFKey   = "kdf_key"
	vaultFieldDIDSalt  = "did_salt"
	vaultFieldTokenKey = "token_key"
)

// VaultConfig configures the Vault-backed provider.
type VaultConfig struct {
	// Address is the Vault server address.
	Address string

	// Token is the authentication token.
	Token string

	// Mount is the KV-v2 mount point. Defaults to "secret".
	Mount string

	// Path is the secret path under the mount.
	Path string
}

// VaultProvider resolves issuer material from a KV-v2 secret. The
// resolved material is cached for the provider's lifetime; restart the
// service to pick up rotated secrets.
type VaultProvider struct {
	client *vault.Client
	config *VaultConfig

	mu       sync.Mutex
	resolved *Material
}

// NewVaultProvider creates a Vault-backed provider.
func NewVaultProvider(config *VaultConfig) (*VaultProvider, error) {
	if config == nil || config.Address == "" || config.Path == "" {
		return nil, fmt.Errorf("secrets: vault address and path are required")
	}
	if config.Mount == "" {
		config.Mount = "secret"
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("secrets: create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}

	return &VaultProvider{
		client: client,
		config: config,
	}, nil
}

// Material resolves the issuer secrets from Vault.
func (p *VaultProvider) Material(ctx context.Context) (*Material, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolved != nil {
		return p.resolved, nil
	}

	secret, err := p.client.KVv2(p.config.Mount).Get(ctx, p.config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	material := &Material{}
	if material.KDFKey, err = decodeField(secret.Data, vaultFieldKDFKey); err != nil {
		return nil, err
	}
	if material.DIDSalt, err = decodeField(secret.Data, vaultFieldDIDSalt); err != nil {
		return nil, err
	}
	if material.TokenKey, err = decodeField(secret.Data, vaultFieldTokenKey); err != nil {
		return nil, err
	}
	if err := material.Validate(); err != nil {
		return nil, err
	}

	p.resolved = material
	return material, nil
}

// Close releases the cached material.
func (p *VaultProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved = nil
	return nil
}

// decodeField reads a base64 encoded field from the secret data.
func decodeField(data map[string]interface{}, field string) ([]byte, error) {
	raw, ok := data[field].(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteMaterial, field)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode %s: %w", field, err)
	}
	return decoded, nil
}
