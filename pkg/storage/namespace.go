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

package storage

import (
	"strings"
)

// ChallengeKey returns the storage path for a pending ceremony session.
// The path follows the convention: challenges/{token}
func ChallengeKey(token string) string {
	return "challenges/" + token
}

// CredentialKey returns the storage path for a credential record keyed
// by its owner's global identifier.
// The path follows the convention: credentials/{globalID}
func CredentialKey(globalID string) string {
	return "credentials/" + globalID
}

// CredentialIDIndexKey returns the storage path for the authenticator
// credential ID uniqueness index.
// The path follows the convention: index/credential-id/{credentialID}
func CredentialIDIndexKey(credentialID string) string {
	return "index/credential-id/" + credentialID
}

// FingerprintIndexKey returns the storage path for the hardware
// fingerprint uniqueness index.
// The path follows the convention: index/fingerprint/{fingerprint}
func FingerprintIndexKey(fingerprint string) string {
	return "index/fingerprint/" + fingerprint
}

// CounterKey returns the storage path for a credential's signature
// counter. Counters live beside the record so they can be updated with
// a conditional write without rewriting the whole record.
func CounterKey(globalID string) string {
	return "counters/" + globalID
}

// RevocationKey returns the storage path for a revocation entry.
// The path follows the convention: revocations/{scope}/{subjectKey}
func RevocationKey(scope, subjectKey string) string {
	return "revocations/" + scope + "/" + subjectKey
}

// ProfileKey returns the storage path for a subject profile.
// The path follows the convention: profiles/{globalID}
func ProfileKey(globalID string) string {
	return "profiles/" + globalID
}

// AuditKey returns the storage path for an audit event.
// The path follows the convention: audit/{eventID}
func AuditKey(eventID string) string {
	return "audit/" + eventID
}

// ListCredentials retrieves all global identifiers with stored
// credential records. Returns an empty slice if none exist.
func ListCredentials(backend Backend) ([]string, error) {
	keys, err := backend.List("credentials/")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, "credentials/")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListRevocations retrieves all subject keys revoked under the given
// scope. Returns an empty slice if none exist.
func ListRevocations(backend Backend, scope string) ([]string, error) {
	keys, err := backend.List("revocations/" + scope + "/")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimPrefix(k, "revocations/"+scope+"/")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
