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
	"errors"
	"fmt"
)

// Sentinel errors for identity operations.
var (
	// ErrNotFound is returned when no record exists for the identifier.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicate is returned when the authenticator is already
	// bound to an existing identity.
	ErrDuplicate = errors.New("authenticator already enrolled")

	// ErrCounterRegression is returned when an assertion reports a
	// signature counter at or below the stored high-water mark.
	ErrCounterRegression = errors.New("signature counter regression")

	// ErrCounterConflict is returned when a counter update loses the
	// conditional write too many times.
	ErrCounterConflict = errors.New("signature counter update conflict")

	// ErrStoreUnavailable is returned when the backing store cannot serve.
	ErrStoreUnavailable = errors.New("identity store unavailable")
)

// IdentityError wraps an error with additional context.
type IdentityError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *IdentityError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *IdentityError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *IdentityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IdentityError{Op: op, Err: err}
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate returns true if the error indicates a duplicate enrollment.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
