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

package pairwise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
)

// defaultTokenTTL is the access token lifetime when none is configured.
const defaultTokenTTL = 15 * time.Minute

// ErrInvalidToken is returned when token verification fails.
var ErrInvalidToken = errors.New("pairwise: invalid token")

// TokenIssuer mints relying-party access tokens. The subject claim is
// the pairwise identifier, never the global one, so the token cannot
// be used to correlate the subject across relying parties.
type TokenIssuer struct {
	secrets secrets.Provider
	issuer  string
	ttl     time.Duration
}

// TokenIssuerParams contains the dependencies for creating a TokenIssuer.
type TokenIssuerParams struct {
	// Secrets provides the signing key. Required.
	Secrets secrets.Provider

	// Issuer is the iss claim value. Required.
	Issuer string

	// TTL is the token lifetime. Defaults to 15 minutes.
	TTL time.Duration
}

// NewTokenIssuer creates an access token issuer.
func NewTokenIssuer(params *TokenIssuerParams) (*TokenIssuer, error) {
	if params == nil || params.Secrets == nil {
		return nil, errors.New("pairwise: secrets provider is required")
	}
	if params.Issuer == "" {
		return nil, errors.New("pairwise: issuer is required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &TokenIssuer{
		secrets: params.Secrets,
		issuer:  params.Issuer,
		ttl:     ttl,
	}, nil
}

// Issue signs an access token for the pairwise identifier scoped to
// the relying party.
func (t *TokenIssuer) Issue(ctx context.Context, pairwiseID, relyingParty string) (string, error) {
	if pairwiseID == "" || relyingParty == "" {
		return "", ErrInvalidInput
	}

	material, err := t.secrets.Material(ctx)
	if err != nil {
		return "", fmt.Errorf("pairwise: resolve secrets: %w", err)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   pairwiseID,
		Audience:  jwt.ClaimStrings{relyingParty},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(material.TokenKey)
	if err != nil {
		return "", fmt.Errorf("pairwise: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token's signature and registered claims and
// returns them.
func (t *TokenIssuer) Verify(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	material, err := t.secrets.Material(ctx)
	if err != nil {
		return nil, fmt.Errorf("pairwise: resolve secrets: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return material.TokenKey, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
