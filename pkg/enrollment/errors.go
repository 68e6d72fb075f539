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

package enrollment

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations.
var (
	// ErrChallengeExpired is returned when the challenge token is
	// unknown, expired, or has already been consumed. Completion is
	// single-shot: a second attempt with the same token fails with
	// this error even when the first attempt succeeded.
	ErrChallengeExpired = errors.New("challenge expired or already used")

	// ErrSignatureInvalid is returned when the authenticator response
	// fails cryptographic verification.
	ErrSignatureInvalid = errors.New("assertion verification failed")

	// ErrReplayDetected is returned when an assertion reports a
	// signature counter at or below the stored high-water mark,
	// indicating a replayed or cloned authenticator.
	ErrReplayDetected = errors.New("replay detected")

	// ErrDuplicateEnrollment is returned when the presented
	// authenticator is already bound to an existing identity.
	ErrDuplicateEnrollment = errors.New("authenticator already enrolled")

	// ErrMalformedRequest is returned when the ceremony payload cannot
	// be used, for example a completion presented against the wrong
	// ceremony type.
	ErrMalformedRequest = errors.New("malformed ceremony request")

	// ErrNotConfigured is returned when an operation requires a
	// collaborator the service was built without.
	ErrNotConfigured = errors.New("operation not configured")
)

// CeremonyError wraps an error with additional context.
type CeremonyError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *CeremonyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *CeremonyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *CeremonyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CeremonyError{Op: op, Err: err}
}
