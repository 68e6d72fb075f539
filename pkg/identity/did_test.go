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

package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintGlobalID_Deterministic(t *testing.T) {
	pk := []byte("cose-public-key")
	salt := []byte("issuer-salt")

	first, err := MintGlobalID(pk, "fp-1", salt)
	require.NoError(t, err)
	second, err := MintGlobalID(pk, "fp-1", salt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, DIDMethod))
}

func TestMintGlobalID_DistinctInputs(t *testing.T) {
	pk := []byte("cose-public-key")
	salt := []byte("issuer-salt")

	base, err := MintGlobalID(pk, "fp-1", salt)
	require.NoError(t, err)

	otherKey, err := MintGlobalID([]byte("other-key"), "fp-1", salt)
	require.NoError(t, err)
	otherFP, err := MintGlobalID(pk, "fp-2", salt)
	require.NoError(t, err)
	otherSalt, err := MintGlobalID(pk, "fp-1", []byte("rotated"))
	require.NoError(t, err)

	assert.NotEqual(t, base, otherKey)
	assert.NotEqual(t, base, otherFP)
	assert.NotEqual(t, base, otherSalt)
}

func TestIdentifierPredicates(t *testing.T) {
	assert.True(t, IsGlobalID("did:sov:zAbc"))
	assert.False(t, IsGlobalID("did:sov:pw:zAbc"))
	assert.False(t, IsGlobalID("did:example:zAbc"))

	assert.True(t, IsPairwiseID("did:sov:pw:zAbc"))
	assert.False(t, IsPairwiseID("did:sov:zAbc"))
}
