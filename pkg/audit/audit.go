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

// Package audit records identity lifecycle events. Recording is
// non-blocking: a full buffer drops the event and increments a drop
// counter rather than slowing the primary operation.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the trail.
const (
	ActionEnrollBegin    = "enroll.begin"
	ActionEnrollComplete = "enroll.complete"
	ActionAuthBegin      = "auth.begin"
	ActionAuthComplete   = "auth.complete"
	ActionDisclose       = "disclose"
	ActionRevoke         = "revoke"
	ActionRestore        = "restore"
	ActionDelete         = "identity.delete"
	ActionDenied         = "revocation.denied"
)

// Outcomes recorded by the trail.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Event is a single audit record.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Action names the operation (use Action* constants).
	Action string `json:"action"`

	// Outcome is the operation result (use Outcome* constants).
	Outcome string `json:"outcome"`

	// Subject is the identifier the operation concerned, when known.
	Subject string `json:"subject,omitempty"`

	// RelyingParty is the relying party involved, when any.
	RelyingParty string `json:"relying_party,omitempty"`

	// Detail carries additional context (error kind, scope, reason).
	Detail map[string]string `json:"detail,omitempty"`
}

// NewEvent creates an event with a fresh ID and timestamp.
func NewEvent(action, outcome string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Outcome:   outcome,
	}
}

// WithSubject sets the subject identifier.
func (e *Event) WithSubject(subject string) *Event {
	e.Subject = subject
	return e
}

// WithRelyingParty sets the relying party.
func (e *Event) WithRelyingParty(relyingParty string) *Event {
	e.RelyingParty = relyingParty
	return e
}

// WithDetail adds a detail entry.
func (e *Event) WithDetail(key, value string) *Event {
	if e.Detail == nil {
		e.Detail = make(map[string]string)
	}
	e.Detail[key] = value
	return e
}

// Sink receives events drained from the trail buffer.
type Sink interface {
	// Write persists one event.
	Write(event *Event) error

	// Close releases sink resources.
	Close() error
}
