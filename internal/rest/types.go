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

package rest

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/jeremyhahn/go-sovereign/pkg/disclosure"
)

// EnrollBeginResponse returns the attestation options for a new
// enrollment ceremony. The session token must be echoed back on
// completion.
type EnrollBeginResponse struct {
	SessionToken string                       `json:"session_token"`
	Options      *protocol.CredentialCreation `json:"options"`
}

// EnrollCompleteRequest finishes an enrollment ceremony. Attestation is
// the authenticator's raw navigator.credentials.create() response.
type EnrollCompleteRequest struct {
	SessionToken string          `json:"session_token"`
	Attestation  json.RawMessage `json:"attestation"`
}

// EnrollCompleteResponse returns the minted identity.
type EnrollCompleteResponse struct {
	Success    bool      `json:"success"`
	GlobalID   string    `json:"global_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// AuthBeginRequest starts an authentication ceremony for an enrolled
// identity.
type AuthBeginRequest struct {
	GlobalID string `json:"global_id"`
}

// AuthBeginResponse returns the assertion options.
type AuthBeginResponse struct {
	SessionToken string                        `json:"session_token"`
	Options      *protocol.CredentialAssertion `json:"options"`
}

// AuthCompleteRequest finishes an authentication ceremony. Assertion is
// the authenticator's raw navigator.credentials.get() response.
// RelyingParty is optional; when set the response carries a pairwise
// identifier and access token scoped to it.
type AuthCompleteRequest struct {
	SessionToken string          `json:"session_token"`
	Assertion    json.RawMessage `json:"assertion"`
	RelyingParty string          `json:"relying_party,omitempty"`
}

// AuthCompleteResponse returns the authenticated identity and, when a
// relying party was named, its pairwise credentials.
type AuthCompleteResponse struct {
	Success     bool   `json:"success"`
	GlobalID    string `json:"global_id"`
	PairwiseID  string `json:"pairwise_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// DiscloseRequest asks for the subject's claims visible to a relying
// party. ConsentedFields narrows the relying party's requested fields;
// empty consent behavior follows the configured disclosure policy.
type DiscloseRequest struct {
	GlobalID        string   `json:"global_id"`
	RelyingParty    string   `json:"relying_party"`
	ConsentedFields []string `json:"consented_fields,omitempty"`
}

// DiscloseResponse returns the filtered claims under the pairwise
// identifier. The global identifier never appears in the response.
type DiscloseResponse struct {
	Success    bool              `json:"success"`
	PairwiseID string            `json:"pairwise_id"`
	Claims     disclosure.Claims `json:"claims"`
	Disclosed  []string          `json:"disclosed"`
}

// ProfileUpdateRequest replaces a subject's stored claims.
type ProfileUpdateRequest struct {
	GlobalID string            `json:"global_id"`
	Claims   disclosure.Claims `json:"claims"`
}

// RevokeRequest writes a deny-list entry for a subject key.
// TTLSeconds is optional; zero uses the registry default.
type RevokeRequest struct {
	Scope      string `json:"scope"`
	SubjectKey string `json:"subject_key"`
	Reason     string `json:"reason,omitempty"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

// RestoreRequest removes a deny-list entry.
type RestoreRequest struct {
	Scope      string `json:"scope"`
	SubjectKey string `json:"subject_key"`
}

// StatusResponse reports the revocation state of a subject key.
type StatusResponse struct {
	Scope      string `json:"scope"`
	SubjectKey string `json:"subject_key"`
	Revoked    bool   `json:"revoked"`
	Reason     string `json:"reason,omitempty"`
	// RemainingSeconds is the entry's remaining TTL in whole seconds.
	RemainingSeconds int64 `json:"remaining_seconds,omitempty"`
}

// DeleteRequest erases an identity and its profile.
type DeleteRequest struct {
	GlobalID string `json:"global_id"`
}

// SuccessResponse is the generic acknowledgement body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the error body returned by all endpoints.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
