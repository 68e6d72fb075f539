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
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// fingerprintLen is the number of hex characters kept from the digest.
const fingerprintLen = 32

// Fingerprint computes the hardware fingerprint from the authenticator
// credential ID and the client's network characteristics. Best-effort:
// two devices behind the same proxy with identical user agents can
// collide, which is why duplicate detection also keys on the exact
// credential ID.
func Fingerprint(credentialID []byte, remoteIP, userAgent string) string {
	h := sha256.New()
	h.Write([]byte(base64.RawURLEncoding.EncodeToString(credentialID)))
	h.Write([]byte(remoteIP))
	h.Write([]byte(userAgent))

	digest := hex.EncodeToString(h.Sum(nil))
	return digest[:fingerprintLen]
}

// DetectDevice infers coarse device metadata from the User-Agent
// header. Non-authoritative; recorded for display only.
func DetectDevice(userAgent string) DeviceInfo {
	ua := strings.ToLower(userAgent)

	info := DeviceInfo{Type: "desktop", Name: "Unknown Device"}
	switch {
	case strings.Contains(ua, "iphone"):
		info.Type = "mobile"
		info.Name = "iPhone"
	case strings.Contains(ua, "ipad"):
		info.Type = "tablet"
		info.Name = "iPad"
	case strings.Contains(ua, "android"):
		info.Type = "mobile"
		info.Name = "Android Device"
	case strings.Contains(ua, "macintosh"):
		info.Name = "Mac"
	case strings.Contains(ua, "windows"):
		info.Name = "Windows PC"
	case strings.Contains(ua, "linux"):
		info.Name = "Linux PC"
	case ua == "":
		info.Type = "unknown"
	}
	return info
}
