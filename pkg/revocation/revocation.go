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

// Package revocation implements the real-time deny list. Entries are
// TTL-bounded and namespaced into a pairwise scope (one relationship)
// and a global scope (the kill switch covering every relationship).
// The registry is open-world: any subject key can be revoked, enrolled
// or not.
package revocation

import (
	"errors"
	"fmt"
	"time"
)

// Scope is a revocation namespace.
type Scope string

const (
	// ScopePairwise revokes a single subject-to-relying-party relationship.
	ScopePairwise Scope = "pairwise"

	// ScopeGlobal revokes every relationship of a subject.
	ScopeGlobal Scope = "global"
)

// Sentinel errors for revocation checks.
var (
	// ErrRevokedPairwise is returned when the pairwise identifier is revoked.
	ErrRevokedPairwise = errors.New("pairwise identifier revoked")

	// ErrRevokedGlobal is returned when the global identifier is revoked.
	ErrRevokedGlobal = errors.New("global identifier revoked")

	// ErrStoreUnavailable is returned under the fail-closed policy when
	// the deny list cannot be read.
	ErrStoreUnavailable = errors.New("revocation store unavailable")

	// ErrInvalidScope is returned for an unknown scope name.
	ErrInvalidScope = errors.New("invalid revocation scope")

	// ErrInvalidSubject is returned for an empty subject key.
	ErrInvalidSubject = errors.New("subject key is required")
)

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopePairwise:
		return ScopePairwise, nil
	case ScopeGlobal:
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, s)
	}
}

// Entry is a stored revocation.
type Entry struct {
	// SubjectKey is the revoked identifier.
	SubjectKey string `json:"subject_key"`

	// Scope is the revocation namespace.
	Scope Scope `json:"scope"`

	// Reason is an optional operator-supplied note.
	Reason string `json:"reason,omitempty"`

	// RevokedAt is when the entry was written.
	RevokedAt time.Time `json:"revoked_at"`
}

// Status is the result of a status query.
type Status struct {
	// Revoked reports whether a live entry exists.
	Revoked bool `json:"revoked"`

	// Remaining is the entry's remaining TTL. Zero when not revoked
	// or when the entry has no expiry.
	Remaining time.Duration `json:"remaining,omitempty"`

	// Entry is the stored revocation, when present.
	Entry *Entry `json:"entry,omitempty"`
}

// Config controls registry behavior.
type Config struct {
	// TTL is the default entry lifetime. Entries must be re-asserted
	// to persist beyond it. Defaults to 5 minutes.
	TTL time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`

	// FailOpen permits operations when the deny list is unreadable.
	// The safe default is false: unreadable means denied.
	FailOpen bool `yaml:"fail_open" json:"fail_open" mapstructure:"fail_open"`

	// MaxRetries bounds deny-list read retries before the fail policy
	// decides. Defaults to 2.
	MaxRetries uint64 `yaml:"max_retries" json:"max_retries" mapstructure:"max_retries"`

	// RetryInterval is the pause between read retries. Defaults to 50ms.
	RetryInterval time.Duration `yaml:"retry_interval" json:"retry_interval" mapstructure:"retry_interval"`
}

// SetDefaults fills in zero-valued fields.
func (c *Config) SetDefaults() {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 50 * time.Millisecond
	}
}
