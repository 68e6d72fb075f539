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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// Ceremony purposes carried in the stored session. A completion must
// match the purpose the challenge was issued for.
const (
	purposeEnroll = "enroll"
	purposeAuth   = "auth"
)

// session is the pending ceremony state stored under the challenge
// token. It lives in the storage backend with the challenge TTL and is
// consumed exactly once.
type session struct {
	// Purpose is the ceremony type the challenge was issued for.
	Purpose string `json:"purpose"`

	// GlobalID is the subject being authenticated. Empty for
	// enrollment, where no identity exists yet.
	GlobalID string `json:"global_id,omitempty"`

	// Data is the WebAuthn session state (challenge, user ID,
	// allowed credentials).
	Data *webauthn.SessionData `json:"data"`
}

// sessionStore persists pending ceremonies in the storage backend.
// Redemption uses the backend's atomic consume so a challenge token
// has exactly one winner under concurrent completion attempts.
type sessionStore struct {
	backend storage.Backend
	ttl     time.Duration
}

func newSessionStore(backend storage.Backend, ttl time.Duration) *sessionStore {
	return &sessionStore{backend: backend, ttl: ttl}
}

// save stores the session and returns its challenge token.
func (s *sessionStore) save(sess *session) (string, error) {
	tokenBytes := make([]byte, 16)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	data, err := json.Marshal(sess)
	if err != nil {
		return "", err
	}
	if err := s.backend.Put(storage.ChallengeKey(token), data, storage.WithTTL(s.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// consume redeems the session for the token. Exactly one caller wins;
// expired, unknown, and already-consumed tokens all return
// ErrChallengeExpired.
func (s *sessionStore) consume(token, purpose string) (*session, error) {
	data, err := s.backend.Consume(storage.ChallengeKey(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrChallengeExpired
		}
		return nil, err
	}

	var sess session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	if sess.Purpose != purpose || sess.Data == nil {
		return nil, ErrMalformedRequest
	}
	return &sess, nil
}
