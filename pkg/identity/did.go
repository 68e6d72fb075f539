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
	"crypto/sha256"
	"strings"

	"github.com/multiformats/go-multibase"
)

const (
	// DIDMethod is the identifier method prefix for global identifiers.
	DIDMethod = "did:sov:"

	// PairwiseDIDMethod is the prefix for pairwise identifiers.
	PairwiseDIDMethod = "did:sov:pw:"
)

// MintGlobalID derives a global identifier from the credential public
// key, the hardware fingerprint and the issuer salt. The derivation is
// deterministic so re-minting with the same inputs yields the same
// identifier, and one-way so the inputs cannot be recovered.
func MintGlobalID(publicKey []byte, fingerprint string, salt []byte) (string, error) {
	h := sha256.New()
	h.Write(publicKey)
	h.Write([]byte(":"))
	h.Write([]byte(fingerprint))
	h.Write([]byte(":"))
	h.Write(salt)

	encoded, err := multibase.Encode(multibase.Base58BTC, h.Sum(nil))
	if err != nil {
		return "", WrapError("identity.MintGlobalID", err)
	}
	return DIDMethod + encoded, nil
}

// IsGlobalID reports whether the identifier carries the global method
// prefix and is not a pairwise identifier.
func IsGlobalID(id string) bool {
	return strings.HasPrefix(id, DIDMethod) && !strings.HasPrefix(id, PairwiseDIDMethod)
}

// IsPairwiseID reports whether the identifier carries the pairwise
// method prefix.
func IsPairwiseID(id string) bool {
	return strings.HasPrefix(id, PairwiseDIDMethod)
}
