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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/audit"
	"github.com/jeremyhahn/go-sovereign/pkg/disclosure"
	"github.com/jeremyhahn/go-sovereign/pkg/enrollment"
	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/metrics"
	"github.com/jeremyhahn/go-sovereign/pkg/pairwise"
	"github.com/jeremyhahn/go-sovereign/pkg/profile"
	"github.com/jeremyhahn/go-sovereign/pkg/ratelimit"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
	"github.com/jeremyhahn/go-sovereign/pkg/rp"
)

// maxRequestBody bounds JSON request bodies. Attestation payloads are
// a few KB; anything near this limit is abuse.
const maxRequestBody = 1 << 20

// HandlerContext holds the collaborators shared by all handlers.
type HandlerContext struct {
	ceremonies *enrollment.Service
	deriver    *pairwise.Deriver
	parties    *rp.Registry
	profiles   profile.Repository
	policy     disclosure.Policy
	registry   *revocation.Registry
	identities *identity.Store
	trail      *audit.Trail
	logger     logger.Logger
	version    string
}

// HandlerParams contains the dependencies for creating a HandlerContext.
type HandlerParams struct {
	// Ceremonies runs enrollment and authentication. Required.
	Ceremonies *enrollment.Service

	// Deriver computes pairwise identifiers for disclosure. Required.
	Deriver *pairwise.Deriver

	// Parties is the relying party registry. Required.
	Parties *rp.Registry

	// Profiles stores subject claims. Required.
	Profiles profile.Repository

	// Policy controls disclosure edge cases.
	Policy disclosure.Policy

	// Registry is the revocation deny list. Required.
	Registry *revocation.Registry

	// Identities persists credential records. Required.
	Identities *identity.Store

	// Trail records audit events. Optional.
	Trail *audit.Trail

	// Logger for handler operations. Optional.
	Logger logger.Logger

	// Version is the API version string.
	Version string
}

// NewHandlerContext creates a handler context.
func NewHandlerContext(params *HandlerParams) (*HandlerContext, error) {
	if params == nil {
		return nil, fmt.Errorf("handler params are required")
	}
	if params.Ceremonies == nil {
		return nil, fmt.Errorf("ceremony service is required")
	}
	if params.Deriver == nil {
		return nil, fmt.Errorf("pairwise deriver is required")
	}
	if params.Parties == nil {
		return nil, fmt.Errorf("relying party registry is required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("revocation registry is required")
	}
	if params.Identities == nil {
		return nil, fmt.Errorf("identity store is required")
	}

	log := params.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}
	version := params.Version
	if version == "" {
		version = "dev"
	}

	return &HandlerContext{
		ceremonies: params.Ceremonies,
		deriver:    params.Deriver,
		parties:    params.Parties,
		profiles:   params.Profiles,
		policy:     params.Policy,
		registry:   params.Registry,
		identities: params.Identities,
		trail:      params.Trail,
		logger:     log,
		version:    version,
	}, nil
}

// record sends an event to the audit trail when one is configured.
func (h *HandlerContext) record(event *audit.Event) {
	if h.trail != nil {
		h.trail.Record(event)
	}
}

// decodeJSON decodes a bounded JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// requestMeta extracts fingerprint inputs from the request.
func requestMeta(r *http.Request) enrollment.RequestMeta {
	return enrollment.RequestMeta{
		RemoteIP:  ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// EnrollBeginHandler starts an enrollment ceremony.
//
//	POST /api/v1/enroll/begin
func (h *HandlerContext) EnrollBeginHandler(w http.ResponseWriter, r *http.Request) {
	options, token, err := h.ceremonies.BeginEnrollment(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, EnrollBeginResponse{
		SessionToken: token,
		Options:      options,
	}, http.StatusOK)
}

// EnrollCompleteHandler finishes an enrollment ceremony and mints the
// global identity.
//
//	POST /api/v1/enroll/complete
func (h *HandlerContext) EnrollCompleteHandler(w http.ResponseWriter, r *http.Request) {
	var req EnrollCompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.SessionToken == "" {
		handleError(w, fmt.Errorf("%w: session_token is required", ErrInvalidRequest))
		return
	}
	if len(req.Attestation) == 0 {
		handleError(w, fmt.Errorf("%w: attestation is required", ErrInvalidRequest))
		return
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(req.Attestation))
	if err != nil {
		handleError(w, fmt.Errorf("%w: %v", enrollment.ErrMalformedRequest, err))
		return
	}

	record, err := h.ceremonies.CompleteEnrollment(r.Context(), req.SessionToken, parsed, requestMeta(r))
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, EnrollCompleteResponse{
		Success:    true,
		GlobalID:   record.GlobalID,
		EnrolledAt: record.CreatedAt,
	}, http.StatusCreated)
}

// AuthBeginHandler starts an authentication ceremony. Revoked global
// identifiers are denied before any challenge is issued.
//
//	POST /api/v1/auth/begin
func (h *HandlerContext) AuthBeginHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthBeginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateGlobalID(req.GlobalID); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	if err := h.registry.Check(r.Context(), req.GlobalID, ""); err != nil {
		h.denyIfRevoked(req.GlobalID, "", err)
		handleError(w, err)
		return
	}

	options, token, err := h.ceremonies.BeginAuthentication(r.Context(), req.GlobalID)
	if err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, AuthBeginResponse{
		SessionToken: token,
		Options:      options,
	}, http.StatusOK)
}

// AuthCompleteHandler finishes an authentication ceremony. When a
// relying party is named it must be registered, and the result carries
// a pairwise identifier and access token for it. The ceremony service
// consults the revocation deny list before verifying the assertion, so
// a revocation issued between begin and complete denies completion
// without advancing any credential state.
//
//	POST /api/v1/auth/complete
func (h *HandlerContext) AuthCompleteHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthCompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if req.SessionToken == "" {
		handleError(w, fmt.Errorf("%w: session_token is required", ErrInvalidRequest))
		return
	}
	if len(req.Assertion) == 0 {
		handleError(w, fmt.Errorf("%w: assertion is required", ErrInvalidRequest))
		return
	}
	if req.RelyingParty != "" {
		if err := ValidateRelyingPartyID(req.RelyingParty); err != nil {
			handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
			return
		}
		if _, err := h.parties.Get(req.RelyingParty); err != nil {
			handleError(w, err)
			return
		}
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(req.Assertion))
	if err != nil {
		handleError(w, fmt.Errorf("%w: %v", enrollment.ErrMalformedRequest, err))
		return
	}

	result, err := h.ceremonies.CompleteAuthentication(r.Context(), req.SessionToken, parsed, req.RelyingParty)
	if err != nil {
		h.denyIfRevoked("", "", err)
		handleError(w, err)
		return
	}

	// Covers ceremony services built without a revocation gate.
	if err := h.registry.Check(r.Context(), result.GlobalID, result.PairwiseID); err != nil {
		h.denyIfRevoked(result.GlobalID, result.PairwiseID, err)
		handleError(w, err)
		return
	}

	writeJSON(w, AuthCompleteResponse{
		Success:     true,
		GlobalID:    result.GlobalID,
		PairwiseID:  result.PairwiseID,
		AccessToken: result.AccessToken,
	}, http.StatusOK)
}

// DiscloseHandler returns the subject's claims visible to a relying
// party: the party's requested fields filtered by the subject's
// consent, keyed by the pairwise identifier.
//
//	POST /api/v1/disclose
func (h *HandlerContext) DiscloseHandler(w http.ResponseWriter, r *http.Request) {
	var req DiscloseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateGlobalID(req.GlobalID); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if err := ValidateRelyingPartyID(req.RelyingParty); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	party, err := h.parties.Get(req.RelyingParty)
	if err != nil {
		handleError(w, err)
		return
	}

	pairwiseID, err := h.deriver.Derive(r.Context(), req.GlobalID, req.RelyingParty)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := h.registry.Check(r.Context(), req.GlobalID, pairwiseID); err != nil {
		h.denyIfRevoked(req.GlobalID, pairwiseID, err)
		handleError(w, err)
		return
	}

	claims, err := h.profiles.Get(req.GlobalID)
	if err != nil {
		handleError(w, err)
		return
	}

	disclosed := disclosure.Filter(claims, party.RequestedFields, req.ConsentedFields, h.policy)

	h.record(audit.NewEvent(audit.ActionDisclose, audit.OutcomeSuccess).
		WithSubject(pairwiseID).
		WithRelyingParty(req.RelyingParty).
		WithDetail("fields", strings.Join(disclosed.Fields(), ",")))

	writeJSON(w, DiscloseResponse{
		Success:    true,
		PairwiseID: pairwiseID,
		Claims:     disclosed,
		Disclosed:  disclosed.Fields(),
	}, http.StatusOK)
}

// ProfileUpdateHandler replaces the subject's stored claims. The
// revocation gate applies: a revoked subject cannot update its profile.
//
//	POST /api/v1/profile
func (h *HandlerContext) ProfileUpdateHandler(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateGlobalID(req.GlobalID); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}
	if len(req.Claims) == 0 {
		handleError(w, fmt.Errorf("%w: claims are required", ErrInvalidRequest))
		return
	}

	if err := h.registry.Check(r.Context(), req.GlobalID, ""); err != nil {
		h.denyIfRevoked(req.GlobalID, "", err)
		handleError(w, err)
		return
	}

	// The subject must be enrolled before it can carry a profile.
	if _, err := h.identities.Get(req.GlobalID); err != nil {
		handleError(w, err)
		return
	}

	if err := h.profiles.Put(req.GlobalID, req.Claims); err != nil {
		handleError(w, err)
		return
	}

	writeJSON(w, SuccessResponse{Success: true}, http.StatusOK)
}

// RevokeHandler writes a deny-list entry.
//
//	POST /api/v1/revoke
func (h *HandlerContext) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	scope, err := revocation.ParseScope(req.Scope)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateSubjectKey(req.SubjectKey); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if err := h.registry.Revoke(r.Context(), scope, req.SubjectKey, req.Reason, ttl); err != nil {
		handleError(w, err)
		return
	}

	h.record(audit.NewEvent(audit.ActionRevoke, audit.OutcomeSuccess).
		WithSubject(req.SubjectKey).
		WithDetail("scope", string(scope)).
		WithDetail("reason", req.Reason))

	writeJSON(w, SuccessResponse{Success: true, Message: "revoked"}, http.StatusOK)
}

// RestoreHandler removes a deny-list entry.
//
//	POST /api/v1/restore
func (h *HandlerContext) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	scope, err := revocation.ParseScope(req.Scope)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateSubjectKey(req.SubjectKey); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	if err := h.registry.Restore(r.Context(), scope, req.SubjectKey); err != nil {
		handleError(w, err)
		return
	}

	h.record(audit.NewEvent(audit.ActionRestore, audit.OutcomeSuccess).
		WithSubject(req.SubjectKey).
		WithDetail("scope", string(scope)))

	writeJSON(w, SuccessResponse{Success: true, Message: "restored"}, http.StatusOK)
}

// RevocationStatusHandler reports the revocation state of a subject.
//
//	GET /api/v1/revocation-status/{scope}/{subjectKey}
func (h *HandlerContext) RevocationStatusHandler(w http.ResponseWriter, r *http.Request) {
	scope, err := revocation.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		handleError(w, err)
		return
	}
	subjectKey := chi.URLParam(r, "subjectKey")
	if err := ValidateSubjectKey(subjectKey); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	status, err := h.registry.Status(r.Context(), scope, subjectKey)
	if err != nil {
		handleError(w, err)
		return
	}

	resp := StatusResponse{
		Scope:      string(scope),
		SubjectKey: subjectKey,
		Revoked:    status.Revoked,
	}
	if status.Entry != nil {
		resp.Reason = status.Entry.Reason
	}
	if status.Remaining > 0 {
		resp.RemainingSeconds = int64(status.Remaining / time.Second)
	}

	writeJSON(w, resp, http.StatusOK)
}

// IdentityDeleteHandler erases an identity and its profile. A revoked
// identity cannot be deleted while the revocation stands; restore it
// first so erasure is an explicit two-step operation.
//
//	POST /api/v1/identity/delete
func (h *HandlerContext) IdentityDeleteHandler(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := ValidateGlobalID(req.GlobalID); err != nil {
		handleError(w, fmt.Errorf("%w: %v", ErrInvalidRequest, err))
		return
	}

	if err := h.registry.Check(r.Context(), req.GlobalID, ""); err != nil {
		h.denyIfRevoked(req.GlobalID, "", err)
		handleError(w, err)
		return
	}

	if err := h.identities.Delete(req.GlobalID); err != nil {
		handleError(w, err)
		return
	}

	if err := h.profiles.Delete(req.GlobalID); err != nil && !errors.Is(err, profile.ErrNotFound) {
		h.logger.Warn("Failed to delete profile",
			logger.String("global_id", req.GlobalID),
			logger.Error(err))
	}

	h.record(audit.NewEvent(audit.ActionDelete, audit.OutcomeSuccess).
		WithSubject(req.GlobalID))

	writeJSON(w, SuccessResponse{Success: true, Message: "identity deleted"}, http.StatusOK)
}

// HealthHandler reports service liveness.
//
//	GET /api/v1/health
func (h *HandlerContext) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Version: h.version,
	}, http.StatusOK)
}

// denyIfRevoked audits a revocation denial. Store failures under the
// fail-closed policy surface as 503 without an audit denial entry.
func (h *HandlerContext) denyIfRevoked(globalID, pairwiseID string, err error) {
	scope := string(revocation.ScopeGlobal)
	subject := globalID
	if errors.Is(err, revocation.ErrRevokedPairwise) {
		scope = string(revocation.ScopePairwise)
		subject = pairwiseID
	} else if !errors.Is(err, revocation.ErrRevokedGlobal) {
		return
	}

	metrics.RecordRevocationDenial(scope)
	h.record(audit.NewEvent(audit.ActionDenied, audit.OutcomeDenied).
		WithSubject(subject).
		WithDetail("scope", scope))
}
