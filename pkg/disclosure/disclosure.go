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

// Package disclosure filters subject claims down to the intersection
// of what a relying party requested and what the subject consented to.
package disclosure

import (
	"sort"
)

// Claims is a subject's attribute map.
type Claims map[string]interface{}

// Policy controls filter behavior for edge cases.
type Policy struct {
	// RequireConsent makes an empty consent list disclose nothing.
	// When false, an empty consent list is treated as blanket consent
	// to the requested fields.
	RequireConsent bool
}

// Filter returns the claims a relying party may see: the requested
// fields the subject consented to, with unset fields omitted and
// unknown field names ignored. The input claims map is not modified.
func Filter(claims Claims, requested, consented []string, policy Policy) Claims {
	disclosed := make(Claims)
	if len(claims) == 0 || len(requested) == 0 {
		return disclosed
	}

	allowed := allowedFields(requested, consented, policy)
	for _, field := range allowed {
		value, ok := claims[field]
		if !ok || isUnset(value) {
			continue
		}
		disclosed[field] = value
	}
	return disclosed
}

// Fields returns the sorted field names of the claims map.
func (c Claims) Fields() []string {
	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// allowedFields intersects the requested fields with consent.
func allowedFields(requested, consented []string, policy Policy) []string {
	if len(consented) == 0 {
		if policy.RequireConsent {
			return nil
		}
		return requested
	}

	consentSet := make(map[string]struct{}, len(consented))
	for _, field := range consented {
		consentSet[field] = struct{}{}
	}

	allowed := make([]string, 0, len(requested))
	for _, field := range requested {
		if _, ok := consentSet[field]; ok {
			allowed = append(allowed, field)
		}
	}
	return allowed
}

// isUnset reports whether a claim value should be treated as absent.
func isUnset(value interface{}) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok && s == "" {
		return true
	}
	return false
}
