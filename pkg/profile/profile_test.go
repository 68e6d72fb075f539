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

package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/pkg/disclosure"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

func TestStoreRepository(t *testing.T) {
	repo, err := NewStoreRepository(storage.NewMemory())
	require.NoError(t, err)

	claims := disclosure.Claims{"name": "asha", "country": "IN"}
	require.NoError(t, repo.Put("did:sov:a", claims))

	got, err := repo.Get("did:sov:a")
	require.NoError(t, err)
	assert.Equal(t, "asha", got["name"])
	assert.Equal(t, "IN", got["country"])

	require.NoError(t, repo.Delete("did:sov:a"))
	_, err = repo.Get("did:sov:a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete("did:sov:a"), ErrNotFound)
}

func TestStoreRepository_GetNotFound(t *testing.T) {
	repo, err := NewStoreRepository(storage.NewMemory())
	require.NoError(t, err)

	_, err = repo.Get("did:sov:missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
