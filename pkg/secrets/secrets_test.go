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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialValidate(t *testing.T) {
	tests := []struct {
		name     string
		material *Material
		wantErr  bool
	}{
		{
			name: "complete",
			material: &Material{
				KDFKey:   []byte("kdf"),
				DIDSalt:  []byte("salt"),
				TokenKey: []byte("token"),
			},
		},
		{
			name:     "nil",
			material: nil,
			wantErr:  true,
		},
		{
			name: "missing kdf key",
			material: &Material{
				DIDSalt:  []byte("salt"),
				TokenKey: []byte("token"),
			},
			wantErr: true,
		},
		{
			name: "missing did salt",
			material: &Material{
				KDFKey:   []byte("kdf"),
				TokenKey: []byte("token"),
			},
			wantErr: true,
		},
		{
			name: "missing token key",
			material: &Material{
				KDFKey:  []byte("kdf"),
				DIDSalt: []byte("salt"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.material.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrIncompleteMaterial)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	material := &Material{
		KDFKey:   []byte("kdf"),
		DIDSalt:  []byte("salt"),
		TokenKey: []byte("token"),
	}

	provider, err := NewStaticProvider(material)
	require.NoError(t, err)
	defer provider.Close()

	resolved, err := provider.Material(context.Background())
	require.NoError(t, err)
	assert.Equal(t, material, resolved)
}

func TestStaticProviderRejectsIncomplete(t *testing.T) {
	_, err := NewStaticProvider(&Material{KDFKey: []byte("kdf")})
	assert.ErrorIs(t, err, ErrIncompleteMaterial)
}

func TestNewVaultProviderValidation(t *testing.T) {
	_, err := NewVaultProvider(nil)
	assert.Error(t, err)

	_, err = NewVaultProvider(&VaultConfig{Address: "http://127.0.0.1:8200"})
	assert.Error(t, err)
}

func TestDecodeField(t *testing.T) {
	data := map[string]interface{}{
		"kdf_key": "a2RmLWtleQ==",
		"bad":     "%%%",
	}

	decoded, err := decodeField(data, "kdf_key")
	require.NoError(t, err)
	assert.Equal(t, []byte("kdf-key"), decoded)

	_, err = decodeField(data, "missing")
	assert.ErrorIs(t, err, ErrIncompleteMaterial)

	_, err = decodeField(data, "bad")
	assert.Error(t, err)
}
