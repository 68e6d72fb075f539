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

package pairwise

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
)

func newTestDeriver(t *testing.T, kdfKey string) *Deriver {
	t.Helper()
	provider, err := secrets.NewStaticProvider(&secrets.Material{
		KDFKey:   []byte(kdfKey),
		DIDSalt:  []byte("salt"),
		TokenKey: []byte("token-key"),
	})
	require.NoError(t, err)

	deriver, err := NewDeriver(&DeriverParams{Secrets: provider})
	require.NoError(t, err)
	return deriver
}

func TestDerive_Deterministic(t *testing.T) {
	deriver := newTestDeriver(t, "kdf-key")
	ctx := context.Background()

	first, err := deriver.Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)
	second, err := deriver.Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, identity.PairwiseDIDMethod))
}

func TestDerive_DistinctPerRelyingParty(t *testing.T) {
	deriver := newTestDeriver(t, "kdf-key")
	ctx := context.Background()

	bank, err := deriver.Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)
	clinic, err := deriver.Derive(ctx, "did:sov:alpha", "clinic.example")
	require.NoError(t, err)

	assert.NotEqual(t, bank, clinic)
}

func TestDerive_DistinctPerSubject(t *testing.T) {
	deriver := newTestDeriver(t, "kdf-key")
	ctx := context.Background()

	alpha, err := deriver.Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)
	beta, err := deriver.Derive(ctx, "did:sov:beta", "bank.example")
	require.NoError(t, err)

	assert.NotEqual(t, alpha, beta)
}

func TestDerive_KeyedByIssuerSecret(t *testing.T) {
	ctx := context.Background()

	first, err := newTestDeriver(t, "key-one").Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)
	second, err := newTestDeriver(t, "key-two").Derive(ctx, "did:sov:alpha", "bank.example")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDerive_InvalidInput(t *testing.T) {
	deriver := newTestDeriver(t, "kdf-key")
	ctx := context.Background()

	_, err := deriver.Derive(ctx, "", "bank.example")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = deriver.Derive(ctx, "did:sov:alpha", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewDeriver_RequiresSecrets(t *testing.T) {
	_, err := NewDeriver(nil)
	assert.Error(t, err)

	_, err = NewDeriver(&DeriverParams{})
	assert.Error(t, err)
}
