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
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// counterAttempts bounds the conditional-write retry loop.
const counterAttempts = 3

// Store persists credential records and their uniqueness indexes.
// Duplicate detection is enforced with conditional writes on the
// credential ID and fingerprint indexes so two concurrent enrollments
// of the same authenticator cannot both succeed.
type Store struct {
	backend storage.Backend
	logger  logger.Logger
}

// StoreParams contains the dependencies for creating a Store.
type StoreParams struct {
	// Backend is the storage backend. Required.
	Backend storage.Backend

	// Logger for store operations. Optional.
	Logger logger.Logger
}

// NewStore creates a credential store.
func NewStore(params *StoreParams) (*Store, error) {
	if params == nil || params.Backend == nil {
		return nil, WrapError("identity.NewStore", errors.New("storage backend is required"))
	}
	log := params.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}
	return &Store{
		backend: params.Backend,
		logger:  log,
	}, nil
}

// Save stores a new record and claims its uniqueness indexes.
// Returns ErrDuplicate when the authenticator credential ID or the
// hardware fingerprint is already bound to another identity.
func (s *Store) Save(record *Record) error {
	credIndex := storage.CredentialIDIndexKey(encodeCredentialID(record.CredentialID))
	if err := s.backend.PutIf(credIndex, []byte(record.GlobalID), nil, nil); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return WrapError("identity.Save", ErrDuplicate)
		}
		return s.storeErr("identity.Save", err)
	}

	if record.Fingerprint != "" {
		fpIndex := storage.FingerprintIndexKey(record.Fingerprint)
		if err := s.backend.PutIf(fpIndex, []byte(record.GlobalID), nil, nil); err != nil {
			// Release the claimed credential ID index before failing.
			if delErr := s.backend.Delete(credIndex); delErr != nil {
				s.logger.Warn("failed to release credential index",
					logger.String("global_id", record.GlobalID),
					logger.Error(delErr))
			}
			if errors.Is(err, storage.ErrConflict) {
				return WrapError("identity.Save", ErrDuplicate)
			}
			return s.storeErr("identity.Save", err)
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return WrapError("identity.Save", err)
	}
	if err := s.backend.Put(storage.CredentialKey(record.GlobalID), data, nil); err != nil {
		return s.storeErr("identity.Save", err)
	}

	counter := encodeCounter(record.Authenticator.SignCount)
	if err := s.backend.Put(storage.CounterKey(record.GlobalID), counter, nil); err != nil {
		return s.storeErr("identity.Save", err)
	}
	return nil
}

// Get retrieves the record for the given global identifier.
func (s *Store) Get(globalID string) (*Record, error) {
	data, err := s.backend.Get(storage.CredentialKey(globalID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, WrapError("identity.Get", ErrNotFound)
		}
		return nil, s.storeErr("identity.Get", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, WrapError("identity.Get", err)
	}
	return &record, nil
}

// GetByCredentialID resolves a record through the credential ID index.
func (s *Store) GetByCredentialID(credentialID []byte) (*Record, error) {
	globalID, err := s.backend.Get(storage.CredentialIDIndexKey(encodeCredentialID(credentialID)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, WrapError("identity.GetByCredentialID", ErrNotFound)
		}
		return nil, s.storeErr("identity.GetByCredentialID", err)
	}
	return s.Get(string(globalID))
}

// Counter returns the stored signature counter high-water mark.
func (s *Store) Counter(globalID string) (uint32, error) {
	raw, err := s.backend.Get(storage.CounterKey(globalID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, WrapError("identity.Counter", ErrNotFound)
		}
		return 0, s.storeErr("identity.Counter", err)
	}
	return decodeCounter(raw)
}

// AdvanceCounter records a reported signature counter with a
// conditional write. The reported value must exceed the stored
// high-water mark; an equal or lower value returns
// ErrCounterRegression. When both values are zero the authenticator
// does not implement a counter and the check is skipped.
func (s *Store) AdvanceCounter(globalID string, reported uint32) error {
	key := storage.CounterKey(globalID)

	for attempt := 0; attempt < counterAttempts; attempt++ {
		raw, err := s.backend.Get(key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return WrapError("identity.AdvanceCounter", ErrNotFound)
			}
			return s.storeErr("identity.AdvanceCounter", err)
		}

		current, err := decodeCounter(raw)
		if err != nil {
			return err
		}

		if current == 0 && reported == 0 {
			return nil
		}
		if reported <= current {
			return WrapError("identity.AdvanceCounter", ErrCounterRegression)
		}

		err = s.backend.PutIf(key, encodeCounter(reported), raw, nil)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return s.storeErr("identity.AdvanceCounter", err)
		}
		// Lost the race to a concurrent assertion; re-read and re-check.
	}

	return WrapError("identity.AdvanceCounter", ErrCounterConflict)
}

// Touch updates the record's last-used timestamp.
func (s *Store) Touch(globalID string) error {
	record, err := s.Get(globalID)
	if err != nil {
		return err
	}
	record.LastUsedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return WrapError("identity.Touch", err)
	}
	if err := s.backend.Put(storage.CredentialKey(globalID), data, nil); err != nil {
		return s.storeErr("identity.Touch", err)
	}
	return nil
}

// Delete removes the record, its counter and its uniqueness indexes.
// Terminal: the identity cannot be restored afterward.
func (s *Store) Delete(globalID string) error {
	record, err := s.Get(globalID)
	if err != nil {
		return err
	}

	if err := s.backend.Delete(storage.CredentialKey(globalID)); err != nil {
		return s.storeErr("identity.Delete", err)
	}

	// Index and counter removal is best-effort once the record is gone.
	keys := []string{
		storage.CounterKey(globalID),
		storage.CredentialIDIndexKey(encodeCredentialID(record.CredentialID)),
	}
	if record.Fingerprint != "" {
		keys = append(keys, storage.FingerprintIndexKey(record.Fingerprint))
	}
	for _, key := range keys {
		if err := s.backend.Delete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete identity key",
				logger.String("key", key),
				logger.Error(err))
		}
	}
	return nil
}

// List returns all enrolled global identifiers.
func (s *Store) List() ([]string, error) {
	ids, err := storage.ListCredentials(s.backend)
	if err != nil {
		return nil, s.storeErr("identity.List", err)
	}
	return ids, nil
}

func (s *Store) storeErr(op string, err error) error {
	if errors.Is(err, storage.ErrClosed) || errors.Is(err, storage.ErrUnavailable) {
		return WrapError(op, errors.Join(ErrStoreUnavailable, err))
	}
	return WrapError(op, err)
}

func encodeCredentialID(credentialID []byte) string {
	return base64.RawURLEncoding.EncodeToString(credentialID)
}

func encodeCounter(counter uint32) []byte {
	return []byte(strconv.FormatUint(uint64(counter), 10))
}

func decodeCounter(raw []byte) (uint32, error) {
	value, err := strconv.ParseUint(string(raw), 10, 32)
	if err != nil {
		return 0, WrapError("identity.decodeCounter", err)
	}
	return uint32(value), nil
}
