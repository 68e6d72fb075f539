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
	"fmt"
	"regexp"
	"strings"

	"github.com/jeremyhahn/go-sovereign/pkg/identity"
)

const maxIdentifierLen = 256

var (
	// subjectKeyPattern matches safe identifier characters. DIDs use
	// method-specific alphanumerics plus colon separators.
	subjectKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9:_\-\.]+$`)

	// rpIDPattern matches relying party identifiers, typically domains.
	rpIDPattern = regexp.MustCompile(`^[a-zA-Z0-9\-\.]+$`)
)

// ValidateGlobalID checks that an identifier is a well-formed global
// DID before it reaches storage lookups.
func ValidateGlobalID(id string) error {
	if id == "" {
		return fmt.Errorf("global_id cannot be empty")
	}
	if len(id) > maxIdentifierLen {
		return fmt.Errorf("global_id too long")
	}
	if !identity.IsGlobalID(id) {
		return fmt.Errorf("global_id is not a valid global identifier")
	}
	if !subjectKeyPattern.MatchString(id) {
		return fmt.Errorf("global_id contains invalid characters")
	}
	return nil
}

// ValidateSubjectKey checks a revocation subject key. Both global and
// pairwise identifiers are acceptable subjects.
func ValidateSubjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("subject_key cannot be empty")
	}
	if len(key) > maxIdentifierLen {
		return fmt.Errorf("subject_key too long")
	}
	if strings.Contains(key, "\x00") {
		return fmt.Errorf("subject_key contains invalid characters")
	}
	if !subjectKeyPattern.MatchString(key) {
		return fmt.Errorf("subject_key contains invalid characters")
	}
	return nil
}

// ValidateRelyingPartyID checks a relying party identifier.
func ValidateRelyingPartyID(id string) error {
	if id == "" {
		return fmt.Errorf("relying_party cannot be empty")
	}
	if len(id) > maxIdentifierLen {
		return fmt.Errorf("relying_party too long")
	}
	if !rpIDPattern.MatchString(id) {
		return fmt.Errorf("relying_party contains invalid characters")
	}
	return nil
}
