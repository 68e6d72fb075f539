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
	"errors"
	"log"
	"net/http"

	"github.com/jeremyhahn/go-sovereign/pkg/enrollment"
	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/profile"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
	"github.com/jeremyhahn/go-sovereign/pkg/rp"
)

// Common errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalError  = errors.New("internal server error")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// errorCode maps an error to the machine-readable code in the response
// body. Clients branch on these, not on the message text.
func errorCode(err error) string {
	switch {
	case errors.Is(err, enrollment.ErrChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, enrollment.ErrReplayDetected):
		return "replay_detected"
	case errors.Is(err, enrollment.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, enrollment.ErrDuplicateEnrollment):
		return "duplicate_enrollment"
	case errors.Is(err, revocation.ErrRevokedGlobal):
		return "revoked_global"
	case errors.Is(err, revocation.ErrRevokedPairwise):
		return "revoked_pairwise"
	case errors.Is(err, revocation.ErrInvalidScope):
		return "invalid_scope"
	case errors.Is(err, identity.ErrNotFound):
		return "identity_not_found"
	case errors.Is(err, profile.ErrNotFound):
		return "profile_not_found"
	case errors.Is(err, rp.ErrNotFound):
		return "unknown_relying_party"
	case errors.Is(err, revocation.ErrStoreUnavailable),
		errors.Is(err, identity.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, enrollment.ErrMalformedRequest),
		errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal_error"
	}
}

// mapErrorToStatusCode maps errors to HTTP status codes.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, enrollment.ErrSignatureInvalid),
		errors.Is(err, enrollment.ErrReplayDetected):
		return http.StatusUnauthorized
	case errors.Is(err, revocation.ErrRevokedGlobal),
		errors.Is(err, revocation.ErrRevokedPairwise):
		return http.StatusForbidden
	case errors.Is(err, identity.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, rp.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, enrollment.ErrDuplicateEnrollment):
		return http.StatusConflict
	case errors.Is(err, revocation.ErrStoreUnavailable),
		errors.Is(err, identity.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, enrollment.ErrChallengeExpired),
		errors.Is(err, enrollment.ErrMalformedRequest),
		errors.Is(err, revocation.ErrInvalidScope),
		errors.Is(err, revocation.ErrInvalidSubject),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorMessages holds the client-facing message for each code. The
// response never carries err.Error(): wrapped errors accumulate
// operation names and collaborator detail that belong in the audit
// trail and logs, not on the wire.
var errorMessages = map[string]string{
	"challenge_expired":     "challenge expired or already used",
	"replay_detected":       "replay detected",
	"signature_invalid":     "verification failed",
	"duplicate_enrollment":  "authenticator already enrolled",
	"revoked_global":        "identity revoked",
	"revoked_pairwise":      "identity revoked for this relying party",
	"invalid_scope":         "invalid revocation scope",
	"identity_not_found":    "identity not found",
	"profile_not_found":     "profile not found",
	"unknown_relying_party": "relying party not registered",
	"store_unavailable":     "service temporarily unavailable",
	"invalid_request":       "invalid request",
	"internal_error":        "internal server error",
}

// writeError writes an error response to the client. The message is
// the fixed string for the error's code so internals never leak.
func writeError(w http.ResponseWriter, err error, statusCode int) {
	code := errorCode(err)
	message, ok := errorMessages[code]
	if !ok {
		message = ErrInternalError.Error()
	}
	if code == "internal_error" {
		log.Printf("request failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := ErrorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	}

	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		log.Printf("Failed to encode error response: %v", encErr)
	}
}

// handleError maps the error to a status code and writes the response.
func handleError(w http.ResponseWriter, err error) {
	writeError(w, err, mapErrorToStatusCode(err))
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}
