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

// Package identity defines credential records, global identifier
// minting and the credential store backing the enrollment and
// authentication ceremonies.
package identity

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Record is the stored binding between a global identifier and the
// hardware authenticator credential that controls it.
type Record struct {
	// GlobalID is the subject's minted global identifier.
	GlobalID string `json:"global_id"`

	// CredentialID is the credential identifier assigned by the authenticator.
	CredentialID []byte `json:"credential_id"`

	// UserHandle is the opaque WebAuthn user handle issued at
	// enrollment. Assertion ceremonies validate against it.
	UserHandle []byte `json:"user_handle"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType indicates the type of attestation used.
	AttestationType string `json:"attestation_type"`

	// Transport lists the transports supported by the authenticator.
	Transport []protocol.AuthenticatorTransport `json:"transport,omitempty"`

	// Flags contains authenticator flags.
	Flags CredentialFlags `json:"flags"`

	// Authenticator contains authenticator-specific data.
	Authenticator AuthenticatorData `json:"authenticator"`

	// Fingerprint is the hardware fingerprint computed at enrollment.
	// Best-effort abuse mitigation, not a security boundary.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Device carries non-authoritative device metadata from enrollment.
	Device DeviceInfo `json:"device,omitempty"`

	// CreatedAt is when the credential was enrolled.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an assertion.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// CredentialFlags contains authenticator capability flags.
type CredentialFlags struct {
	// UserPresent indicates the user was present during the operation.
	UserPresent bool `json:"user_present"`

	// UserVerified indicates the user was verified (e.g., biometric, PIN).
	UserVerified bool `json:"user_verified"`

	// BackupEligible indicates the credential can be backed up.
	BackupEligible bool `json:"backup_eligible"`

	// BackupState indicates the credential is currently backed up.
	BackupState bool `json:"backup_state"`
}

// AuthenticatorData contains authenticator-specific information.
type AuthenticatorData struct {
	// AAGUID is the authenticator's unique identifier.
	AAGUID []byte `json:"aaguid"`

	// SignCount is the signature counter observed at enrollment.
	// The live counter is tracked separately by the store so it can
	// be advanced with a conditional write.
	SignCount uint32 `json:"sign_count"`

	// CloneWarning indicates a potential cloned authenticator.
	CloneWarning bool `json:"clone_warning"`

	// Attachment indicates how the authenticator is attached.
	Attachment protocol.AuthenticatorAttachment `json:"attachment"`
}

// DeviceInfo is device metadata inferred from the enrollment request.
type DeviceInfo struct {
	// Type is a coarse device class (mobile, desktop, security-key).
	Type string `json:"type,omitempty"`

	// Name is a human-readable device name.
	Name string `json:"name,omitempty"`
}

// ToWebAuthn converts a Record to the go-webauthn library's Credential type.
func (r *Record) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              r.CredentialID,
		PublicKey:       r.PublicKey,
		AttestationType: r.AttestationType,
		Transport:       r.Transport,
		Flags: webauthn.CredentialFlags{
			UserPresent:    r.Flags.UserPresent,
			UserVerified:   r.Flags.UserVerified,
			BackupEligible: r.Flags.BackupEligible,
			BackupState:    r.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:       r.Authenticator.AAGUID,
			SignCount:    r.Authenticator.SignCount,
			CloneWarning: r.Authenticator.CloneWarning,
			Attachment:   r.Authenticator.Attachment,
		},
	}
}

// FromWebAuthnCredential creates a Record from the go-webauthn library's type.
func FromWebAuthnCredential(globalID string, userHandle []byte, wc *webauthn.Credential) *Record {
	return &Record{
		GlobalID:        globalID,
		CredentialID:    wc.ID,
		UserHandle:      userHandle,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transport:       wc.Transport,
		Flags: CredentialFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		Authenticator: AuthenticatorData{
			AAGUID:       wc.Authenticator.AAGUID,
			SignCount:    wc.Authenticator.SignCount,
			CloneWarning: wc.Authenticator.CloneWarning,
			Attachment:   wc.Authenticator.Attachment,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// Subject adapts a Record to the webauthn.User interface for
// assertion ceremonies.
type Subject struct {
	record *Record
}

// NewSubject wraps a stored record for use in a ceremony.
func NewSubject(record *Record) *Subject {
	return &Subject{record: record}
}

// WebAuthnID returns the user handle issued at enrollment.
func (s *Subject) WebAuthnID() []byte {
	return s.record.UserHandle
}

// WebAuthnName returns the subject's global identifier.
func (s *Subject) WebAuthnName() string {
	return s.record.GlobalID
}

// WebAuthnDisplayName returns the subject's global identifier.
func (s *Subject) WebAuthnDisplayName() string {
	return s.record.GlobalID
}

// WebAuthnCredentials returns the subject's registered credential.
func (s *Subject) WebAuthnCredentials() []webauthn.Credential {
	return []webauthn.Credential{s.record.ToWebAuthn()}
}

// Record returns the underlying credential record.
func (s *Subject) Record() *Record {
	return s.record
}
