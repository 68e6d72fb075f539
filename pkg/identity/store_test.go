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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&StoreParams{Backend: storage.NewMemory()})
	require.NoError(t, err)
	return store
}

func testRecord(globalID string, credentialID []byte, fingerprint string) *Record {
	return &Record{
		GlobalID:     globalID,
		CredentialID: credentialID,
		UserHandle:   []byte("handle-" + globalID),
		PublicKey:    []byte("pk-" + globalID),
		Fingerprint:  fingerprint,
		Authenticator: AuthenticatorData{
			SignCount: 1,
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("did:sov:a", []byte{0x01}, "fp-a")
	require.NoError(t, store.Save(record))

	got, err := store.Get("did:sov:a")
	require.NoError(t, err)
	assert.Equal(t, record.GlobalID, got.GlobalID)
	assert.Equal(t, record.CredentialID, got.CredentialID)
	assert.Equal(t, record.UserHandle, got.UserHandle)

	byCred, err := store.GetByCredentialID([]byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, record.GlobalID, byCred.GlobalID)

	counter, err := store.Counter("did:sov:a")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), counter)
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("did:sov:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetByCredentialID([]byte{0xFF})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DuplicateCredentialID(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	err := store.Save(testRecord("did:sov:b", []byte{0x01}, "fp-b"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// The second identity must not exist.
	_, err = store.Get("did:sov:b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DuplicateFingerprint(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	err := store.Save(testRecord("did:sov:b", []byte{0x02}, "fp-a"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// The credential ID index claimed by the failed save is released,
	// so the same authenticator can enroll with a distinct fingerprint.
	require.NoError(t, store.Save(testRecord("did:sov:c", []byte{0x02}, "fp-c")))
}

func TestStore_AdvanceCounter(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	// Monotonic advance succeeds.
	require.NoError(t, store.AdvanceCounter("did:sov:a", 2))

	counter, err := store.Counter("did:sov:a")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), counter)

	// Equal counter is a regression.
	assert.ErrorIs(t, store.AdvanceCounter("did:sov:a", 2), ErrCounterRegression)

	// Lower counter is a regression.
	assert.ErrorIs(t, store.AdvanceCounter("did:sov:a", 1), ErrCounterRegression)
}

func TestStore_AdvanceCounterUnsupported(t *testing.T) {
	store := newTestStore(t)

	record := testRecord("did:sov:a", []byte{0x01}, "fp-a")
	record.Authenticator.SignCount = 0
	require.NoError(t, store.Save(record))

	// Authenticators without a counter always report zero; the check
	// is skipped rather than treated as a replay.
	require.NoError(t, store.AdvanceCounter("did:sov:a", 0))
	require.NoError(t, store.AdvanceCounter("did:sov:a", 0))

	// Once the counter moves, zero becomes a regression.
	require.NoError(t, store.AdvanceCounter("did:sov:a", 5))
	assert.ErrorIs(t, store.AdvanceCounter("did:sov:a", 0), ErrCounterRegression)
}

func TestStore_AdvanceCounterConcurrent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	// All racers report the same counter value; exactly one can win.
	const racers = 8
	var wins atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if err := store.AdvanceCounter("did:sov:a", 2); err == nil {
				wins.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
}

func TestStore_Touch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	require.NoError(t, store.Touch("did:sov:a"))

	got, err := store.Get("did:sov:a")
	require.NoError(t, err)
	assert.False(t, got.LastUsedAt.IsZero())
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))

	require.NoError(t, store.Delete("did:sov:a"))

	_, err := store.Get("did:sov:a")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetByCredentialID([]byte{0x01})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Counter("did:sov:a")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again reports not found.
	assert.ErrorIs(t, store.Delete("did:sov:a"), ErrNotFound)

	// The authenticator can enroll a fresh identity afterward.
	require.NoError(t, store.Save(testRecord("did:sov:b", []byte{0x01}, "fp-a")))
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Save(testRecord("did:sov:a", []byte{0x01}, "fp-a")))
	require.NoError(t, store.Save(testRecord("did:sov:b", []byte{0x02}, "fp-b")))

	ids, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"did:sov:a", "did:sov:b"}, ids)
}

func TestStore_UnavailableBackend(t *testing.T) {
	backend := storage.NewMemory()
	store, err := NewStore(&StoreParams{Backend: backend})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = store.Get("did:sov:a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
