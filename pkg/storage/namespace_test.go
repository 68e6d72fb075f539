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

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPaths(t *testing.T) {
	assert.Equal(t, "challenges/tok", ChallengeKey("tok"))
	assert.Equal(t, "credentials/did:sov:abc", CredentialKey("did:sov:abc"))
	assert.Equal(t, "index/credential-id/xyz", CredentialIDIndexKey("xyz"))
	assert.Equal(t, "index/fingerprint/fp", FingerprintIndexKey("fp"))
	assert.Equal(t, "counters/did:sov:abc", CounterKey("did:sov:abc"))
	assert.Equal(t, "revocations/global/did:sov:abc", RevocationKey("global", "did:sov:abc"))
	assert.Equal(t, "profiles/did:sov:abc", ProfileKey("did:sov:abc"))
	assert.Equal(t, "audit/evt-1", AuditKey("evt-1"))
}

func TestListCredentials(t *testing.T) {
	backend := NewMemory()
	defer backend.Close()

	require.NoError(t, backend.Put(CredentialKey("did:sov:a"), []byte("1"), nil))
	require.NoError(t, backend.Put(CredentialKey("did:sov:b"), []byte("2"), nil))
	require.NoError(t, backend.Put(ProfileKey("did:sov:a"), []byte("3"), nil))

	ids, err := ListCredentials(backend)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"did:sov:a", "did:sov:b"}, ids)
}

func TestListRevocations(t *testing.T) {
	backend := NewMemory()
	defer backend.Close()

	require.NoError(t, backend.Put(RevocationKey("global", "did:sov:a"), []byte("1"), nil))
	require.NoError(t, backend.Put(RevocationKey("pairwise", "did:sov:pw:b"), []byte("1"), nil))

	ids, err := ListRevocations(backend, "global")
	require.NoError(t, err)
	assert.Equal(t, []string{"did:sov:a"}, ids)

	ids, err = ListRevocations(backend, "pairwise")
	require.NoError(t, err)
	assert.Equal(t, []string{"did:sov:pw:b"}, ids)
}
