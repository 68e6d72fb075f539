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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	credID := []byte{0x01, 0x02, 0x03}

	fp := Fingerprint(credID, "203.0.113.7", "Mozilla/5.0")
	assert.Len(t, fp, fingerprintLen)
	assert.Equal(t, fp, Fingerprint(credID, "203.0.113.7", "Mozilla/5.0"))

	assert.NotEqual(t, fp, Fingerprint(credID, "203.0.113.8", "Mozilla/5.0"))
	assert.NotEqual(t, fp, Fingerprint(credID, "203.0.113.7", "curl/8.0"))
	assert.NotEqual(t, fp, Fingerprint([]byte{0x04}, "203.0.113.7", "Mozilla/5.0"))
}

func TestDetectDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		wantType  string
		wantName  string
	}{
		{"iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)", "mobile", "iPhone"},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", "mobile", "Android Device"},
		{"ipad", "Mozilla/5.0 (iPad; CPU OS 17_0)", "tablet", "iPad"},
		{"mac", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "desktop", "Mac"},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64)", "desktop", "Windows PC"},
		{"empty", "", "unknown", "Unknown Device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DetectDevice(tt.userAgent)
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.wantName, info.Name)
		})
	}
}
