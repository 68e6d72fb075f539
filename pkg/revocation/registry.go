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

package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// Registry is the deny-list store. Writes go straight through to the
// backend and reads never consult an in-process cache, so a revocation
// takes effect on the next check.
type Registry struct {
	backend storage.Backend
	config  *Config
	logger  logger.Logger
}

// RegistryParams contains the dependencies for creating a Registry.
type RegistryParams struct {
	// Backend is the storage backend. Required.
	Backend storage.Backend

	// Config controls TTL, retries and the fail policy. Optional.
	Config *Config

	// Logger for registry operations. Optional.
	Logger logger.Logger
}

// NewRegistry creates a revocation registry.
func NewRegistry(params *RegistryParams) (*Registry, error) {
	if params == nil || params.Backend == nil {
		return nil, errors.New("revocation: storage backend is required")
	}
	config := params.Config
	if config == nil {
		config = &Config{}
	}
	config.SetDefaults()

	log := params.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	return &Registry{
		backend: params.Backend,
		config:  config,
		logger:  log,
	}, nil
}

// Revoke writes a deny-list entry. Idempotent: revoking an already
// revoked subject refreshes the entry and its TTL. A zero ttl uses the
// configured default.
func (r *Registry) Revoke(ctx context.Context, scope Scope, subjectKey, reason string, ttl time.Duration) error {
	if subjectKey == "" {
		return ErrInvalidSubject
	}
	if _, err := ParseScope(string(scope)); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = r.config.TTL
	}

	entry := &Entry{
		SubjectKey: subjectKey,
		Scope:      scope,
		Reason:     reason,
		RevokedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := storage.RevocationKey(string(scope), subjectKey)
	if err := r.backend.Put(key, data, storage.WithTTL(ttl)); err != nil {
		return r.storeErr(err)
	}

	r.logger.Info("subject revoked",
		logger.String("scope", string(scope)),
		logger.String("subject", subjectKey),
		logger.String("reason", reason))
	return nil
}

// Restore removes a deny-list entry. Idempotent: restoring a subject
// that is not revoked succeeds.
func (r *Registry) Restore(ctx context.Context, scope Scope, subjectKey string) error {
	if subjectKey == "" {
		return ErrInvalidSubject
	}
	if _, err := ParseScope(string(scope)); err != nil {
		return err
	}

	key := storage.RevocationKey(string(scope), subjectKey)
	if err := r.backend.Delete(key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return r.storeErr(err)
	}

	r.logger.Info("subject restored",
		logger.String("scope", string(scope)),
		logger.String("subject", subjectKey))
	return nil
}

// Status reports whether the subject is revoked and the remaining TTL.
func (r *Registry) Status(ctx context.Context, scope Scope, subjectKey string) (*Status, error) {
	if subjectKey == "" {
		return nil, ErrInvalidSubject
	}
	if _, err := ParseScope(string(scope)); err != nil {
		return nil, err
	}

	key := storage.RevocationKey(string(scope), subjectKey)
	data, err := r.backend.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &Status{Revoked: false}, nil
		}
		return nil, r.storeErr(err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	remaining, err := r.backend.TTL(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Expired between the read and the TTL query.
			return &Status{Revoked: false}, nil
		}
		return nil, r.storeErr(err)
	}

	return &Status{
		Revoked:   true,
		Remaining: remaining,
		Entry:     &entry,
	}, nil
}

// Check enforces the deny list for an operation. The global scope is
// checked first so a kill switch wins over a pairwise restore. Reads
// are retried with constant backoff; if the deny list stays
// unreadable the configured fail policy decides.
func (r *Registry) Check(ctx context.Context, globalID, pairwiseID string) error {
	if globalID != "" {
		revoked, err := r.isRevoked(ctx, ScopeGlobal, globalID)
		if err != nil {
			return r.failPolicy(err)
		}
		if revoked {
			return ErrRevokedGlobal
		}
	}

	if pairwiseID != "" {
		revoked, err := r.isRevoked(ctx, ScopePairwise, pairwiseID)
		if err != nil {
			return r.failPolicy(err)
		}
		if revoked {
			return ErrRevokedPairwise
		}
	}

	return nil
}

// isRevoked reads the deny list with bounded retries.
func (r *Registry) isRevoked(ctx context.Context, scope Scope, subjectKey string) (bool, error) {
	key := storage.RevocationKey(string(scope), subjectKey)

	var revoked bool
	operation := func() error {
		exists, err := r.backend.Exists(key)
		if err != nil {
			return err
		}
		revoked = exists
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.config.RetryInterval), r.config.MaxRetries),
		ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return false, err
	}
	return revoked, nil
}

// failPolicy resolves an unreadable deny list per configuration.
func (r *Registry) failPolicy(err error) error {
	if r.config.FailOpen {
		r.logger.Warn("revocation store unreadable, failing open",
			logger.Error(err))
		return nil
	}
	r.logger.Error("revocation store unreadable, failing closed",
		logger.Error(err))
	return errors.Join(ErrStoreUnavailable, err)
}

func (r *Registry) storeErr(err error) error {
	if errors.Is(err, storage.ErrClosed) || errors.Is(err, storage.ErrUnavailable) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return err
}
