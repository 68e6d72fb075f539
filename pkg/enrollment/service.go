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

// Package enrollment runs the hardware-bound ceremonies of the identity
// lifecycle: enrolling an authenticator to mint a global identifier and
// proving possession of it on subsequent authentications. Challenges
// are single-use and expire; signature counters are enforced against a
// stored high-water mark to detect replay.
package enrollment

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/jeremyhahn/go-sovereign/pkg/adapters/logger"
	"github.com/jeremyhahn/go-sovereign/pkg/audit"
	"github.com/jeremyhahn/go-sovereign/pkg/identity"
	"github.com/jeremyhahn/go-sovereign/pkg/metrics"
	"github.com/jeremyhahn/go-sovereign/pkg/pairwise"
	"github.com/jeremyhahn/go-sovereign/pkg/revocation"
	"github.com/jeremyhahn/go-sovereign/pkg/secrets"
	"github.com/jeremyhahn/go-sovereign/pkg/storage"
)

// userHandleLen is the octet length of minted WebAuthn user handles.
const userHandleLen = 32

// RequestMeta carries client request characteristics used for hardware
// fingerprinting and device detection. Best-effort inputs, not a
// security boundary.
type RequestMeta struct {
	// RemoteIP is the client's network address.
	RemoteIP string

	// UserAgent is the client's User-Agent header.
	UserAgent string
}

// AuthResult is the outcome of a completed authentication ceremony.
type AuthResult struct {
	// GlobalID is the authenticated subject's global identifier.
	GlobalID string `json:"global_id"`

	// PairwiseID is the relying-party-scoped identifier, set when the
	// ceremony named a relying party.
	PairwiseID string `json:"pairwise_id,omitempty"`

	// AccessToken is the relying-party access token, set when the
	// ceremony named a relying party and the service has an issuer.
	AccessToken string `json:"access_token,omitempty"`

	// Record is the credential record backing the identity.
	Record *identity.Record `json:"-"`
}

// Gate screens ceremony subjects against a deny list. Check receives
// the global and pairwise identifiers in play; either may be empty.
type Gate interface {
	Check(ctx context.Context, globalID, pairwiseID string) error
}

// Service runs enrollment and authentication ceremonies.
type Service struct {
	config   *Config
	webAuthn *webauthn.WebAuthn
	store    *identity.Store
	sessions *sessionStore
	secrets  secrets.Provider
	deriver  *pairwise.Deriver
	tokens   *pairwise.TokenIssuer
	gate     Gate
	trail    *audit.Trail
	logger   logger.Logger
}

// ServiceParams contains the dependencies for creating a Service.
type ServiceParams struct {
	// Config is the ceremony configuration. Required.
	Config *Config

	// Store persists credential records. Required.
	Store *identity.Store

	// Backend holds pending ceremony sessions. Required.
	Backend storage.Backend

	// Secrets supplies the identifier minting salt. Required.
	Secrets secrets.Provider

	// Deriver computes pairwise identifiers. Optional; without it
	// authentication cannot be scoped to a relying party.
	Deriver *pairwise.Deriver

	// Tokens issues relying-party access tokens. Optional.
	Tokens *pairwise.TokenIssuer

	// Gate screens subjects mid-ceremony, so a revocation issued
	// between begin and complete denies the completion before the
	// assertion is verified or the counter advances. Optional.
	Gate Gate

	// Audit records lifecycle events. Optional.
	Audit *audit.Trail

	// Logger for ceremony operations. Optional.
	Logger logger.Logger
}

// NewService creates a ceremony service.
func NewService(params *ServiceParams) (*Service, error) {
	if params == nil {
		return nil, errors.New("enrollment: params are required")
	}
	if params.Config == nil {
		return nil, errors.New("enrollment: config is required")
	}
	if params.Store == nil {
		return nil, errors.New("enrollment: identity store is required")
	}
	if params.Backend == nil {
		return nil, errors.New("enrollment: storage backend is required")
	}
	if params.Secrets == nil {
		return nil, errors.New("enrollment: secrets provider is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("enrollment: invalid config: %w", err)
	}

	wa, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("enrollment: initialize webauthn: %w", err)
	}

	log := params.Logger
	if log == nil {
		log = logger.NewSlogAdapter(nil)
	}

	return &Service{
		config:   params.Config,
		webAuthn: wa,
		store:    params.Store,
		sessions: newSessionStore(params.Backend, params.Config.ChallengeTTL),
		secrets:  params.Secrets,
		deriver:  params.Deriver,
		tokens:   params.Tokens,
		gate:     params.Gate,
		trail:    params.Audit,
		logger:   log,
	}, nil
}

// BeginEnrollment starts an enrollment ceremony for a new identity.
// Returns the credential creation options for the authenticator and
// the single-use challenge token that redeems them.
func (s *Service) BeginEnrollment(ctx context.Context) (*protocol.CredentialCreation, string, error) {
	start := time.Now()

	handle := make([]byte, userHandleLen)
	if _, err := rand.Read(handle); err != nil {
		return nil, "", s.fail(metrics.OpEnrollBegin, start, WrapError("enrollment.BeginEnrollment", err))
	}

	options, sessionData, err := s.webAuthn.BeginRegistration(&enrollee{handle: handle})
	if err != nil {
		return nil, "", s.fail(metrics.OpEnrollBegin, start, WrapError("enrollment.BeginEnrollment", err))
	}

	token, err := s.sessions.save(&session{Purpose: purposeEnroll, Data: sessionData})
	if err != nil {
		return nil, "", s.fail(metrics.OpEnrollBegin, start, WrapError("enrollment.BeginEnrollment", err))
	}

	s.record(audit.NewEvent(audit.ActionEnrollBegin, audit.OutcomeSuccess))
	metrics.RecordOperation(metrics.OpEnrollBegin, metrics.StatusSuccess, time.Since(start).Seconds())
	return options, token, nil
}

// CompleteEnrollment redeems the challenge token against the
// authenticator's attestation response, mints the global identifier
// and stores the credential binding. The token is consumed whether or
// not the ceremony succeeds.
func (s *Service) CompleteEnrollment(ctx context.Context, token string, response *protocol.ParsedCredentialCreationData, meta RequestMeta) (*identity.Record, error) {
	const op = "enrollment.CompleteEnrollment"
	start := time.Now()

	if response == nil {
		return nil, s.fail(metrics.OpEnrollFinish, start, WrapError(op, ErrMalformedRequest))
	}

	sess, err := s.sessions.consume(token, purposeEnroll)
	if err != nil {
		return nil, s.failAudit(metrics.OpEnrollFinish, start, audit.ActionEnrollComplete, "", WrapError(op, err))
	}

	cred, err := s.webAuthn.CreateCredential(&enrollee{handle: sess.Data.UserID}, *sess.Data, response)
	if err != nil {
		return nil, s.failAudit(metrics.OpEnrollFinish, start, audit.ActionEnrollComplete, "",
			WrapError(op, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)))
	}

	material, err := s.secrets.Material(ctx)
	if err != nil {
		return nil, s.fail(metrics.OpEnrollFinish, start, WrapError(op, err))
	}

	fingerprint := identity.Fingerprint(cred.ID, meta.RemoteIP, meta.UserAgent)
	globalID, err := identity.MintGlobalID(cred.PublicKey, fingerprint, material.DIDSalt)
	if err != nil {
		return nil, s.fail(metrics.OpEnrollFinish, start, WrapError(op, err))
	}

	record := identity.FromWebAuthnCredential(globalID, sess.Data.UserID, cred)
	record.Fingerprint = fingerprint
	record.Device = identity.DetectDevice(meta.UserAgent)

	if err := s.store.Save(record); err != nil {
		if identity.IsDuplicate(err) {
			return nil, s.failAudit(metrics.OpEnrollFinish, start, audit.ActionEnrollComplete, "",
				WrapError(op, ErrDuplicateEnrollment))
		}
		return nil, s.fail(metrics.OpEnrollFinish, start, WrapError(op, err))
	}

	s.record(audit.NewEvent(audit.ActionEnrollComplete, audit.OutcomeSuccess).
		WithSubject(globalID).
		WithDetail("device", record.Device.Name))
	metrics.RecordOperation(metrics.OpEnrollFinish, metrics.StatusSuccess, time.Since(start).Seconds())

	s.logger.Info("identity enrolled",
		logger.String("global_id", globalID),
		logger.String("device", record.Device.Name))
	return record, nil
}

// BeginAuthentication starts an assertion ceremony for the subject.
func (s *Service) BeginAuthentication(ctx context.Context, globalID string) (*protocol.CredentialAssertion, string, error) {
	const op = "enrollment.BeginAuthentication"
	start := time.Now()

	record, err := s.store.Get(globalID)
	if err != nil {
		return nil, "", s.fail(metrics.OpAuthBegin, start, WrapError(op, err))
	}

	options, sessionData, err := s.webAuthn.BeginLogin(identity.NewSubject(record))
	if err != nil {
		return nil, "", s.fail(metrics.OpAuthBegin, start, WrapError(op, err))
	}

	token, err := s.sessions.save(&session{Purpose: purposeAuth, GlobalID: globalID, Data: sessionData})
	if err != nil {
		return nil, "", s.fail(metrics.OpAuthBegin, start, WrapError(op, err))
	}

	s.record(audit.NewEvent(audit.ActionAuthBegin, audit.OutcomeSuccess).WithSubject(globalID))
	metrics.RecordOperation(metrics.OpAuthBegin, metrics.StatusSuccess, time.Since(start).Seconds())
	return options, token, nil
}

// CompleteAuthentication redeems the challenge token against the
// authenticator's assertion response. The reported signature counter
// must exceed the stored high-water mark; a stale counter fails with
// ErrReplayDetected. When relyingParty is non-empty the result carries
// the pairwise identifier and, if an issuer is configured, an access
// token scoped to that relying party.
func (s *Service) CompleteAuthentication(ctx context.Context, token string, response *protocol.ParsedCredentialAssertionData, relyingParty string) (*AuthResult, error) {
	const op = "enrollment.CompleteAuthentication"
	start := time.Now()

	if response == nil {
		return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, ErrMalformedRequest))
	}

	sess, err := s.sessions.consume(token, purposeAuth)
	if err != nil {
		return nil, s.failAudit(metrics.OpAuthFinish, start, audit.ActionAuthComplete, "", WrapError(op, err))
	}

	record, err := s.store.Get(sess.GlobalID)
	if err != nil {
		return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, err))
	}

	// A revocation issued between begin and complete denies the
	// ceremony here, before the assertion is verified and before the
	// signature counter advances. The challenge is already consumed.
	if s.gate != nil {
		if err := s.gate.Check(ctx, sess.GlobalID, ""); err != nil {
			return nil, s.failAudit(metrics.OpAuthFinish, start, audit.ActionAuthComplete, sess.GlobalID,
				WrapError(op, err))
		}
	}

	validated, err := s.webAuthn.ValidateLogin(identity.NewSubject(record), *sess.Data, response)
	if err != nil {
		return nil, s.failAudit(metrics.OpAuthFinish, start, audit.ActionAuthComplete, sess.GlobalID,
			WrapError(op, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)))
	}

	// The library flags stale counters without failing the ceremony;
	// the store enforces strict monotonicity with a conditional write.
	if err := s.store.AdvanceCounter(sess.GlobalID, validated.Authenticator.SignCount); err != nil {
		if errors.Is(err, identity.ErrCounterRegression) {
			return nil, s.failAudit(metrics.OpAuthFinish, start, audit.ActionAuthComplete, sess.GlobalID,
				WrapError(op, ErrReplayDetected))
		}
		return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, err))
	}

	if err := s.store.Touch(sess.GlobalID); err != nil {
		s.logger.Warn("failed to update last-used timestamp",
			logger.String("global_id", sess.GlobalID),
			logger.Error(err))
	}

	result := &AuthResult{GlobalID: sess.GlobalID, Record: record}
	if relyingParty != "" {
		if s.deriver == nil {
			return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, ErrNotConfigured))
		}
		pairwiseID, err := s.deriver.Derive(ctx, sess.GlobalID, relyingParty)
		if err != nil {
			return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, err))
		}
		result.PairwiseID = pairwiseID

		if s.gate != nil {
			if err := s.gate.Check(ctx, "", pairwiseID); err != nil {
				return nil, s.failAudit(metrics.OpAuthFinish, start, audit.ActionAuthComplete, sess.GlobalID,
					WrapError(op, err))
			}
		}

		if s.tokens != nil {
			accessToken, err := s.tokens.Issue(ctx, pairwiseID, relyingParty)
			if err != nil {
				return nil, s.fail(metrics.OpAuthFinish, start, WrapError(op, err))
			}
			result.AccessToken = accessToken
		}
	}

	s.record(audit.NewEvent(audit.ActionAuthComplete, audit.OutcomeSuccess).
		WithSubject(sess.GlobalID).
		WithRelyingParty(relyingParty))
	metrics.RecordOperation(metrics.OpAuthFinish, metrics.StatusSuccess, time.Since(start).Seconds())
	return result, nil
}

// record writes an audit event when a trail is configured.
func (s *Service) record(event *audit.Event) {
	if s.trail != nil {
		s.trail.Record(event)
	}
}

// fail records failure metrics and returns the error unchanged.
func (s *Service) fail(operation string, start time.Time, err error) error {
	metrics.RecordOperation(operation, metrics.StatusError, time.Since(start).Seconds())
	metrics.RecordError(operation, errorType(err))
	return err
}

// failAudit records failure metrics plus an audit event.
func (s *Service) failAudit(operation string, start time.Time, action, subject string, err error) error {
	event := audit.NewEvent(action, audit.OutcomeFailure).WithDetail("error", errorType(err))
	if subject != "" {
		event = event.WithSubject(subject)
	}
	s.record(event)
	return s.fail(operation, start, err)
}

// errorType maps an error to a stable metric label.
func errorType(err error) string {
	switch {
	case errors.Is(err, ErrChallengeExpired):
		return "challenge_expired"
	case errors.Is(err, ErrReplayDetected):
		return "replay_detected"
	case errors.Is(err, ErrDuplicateEnrollment):
		return "duplicate_enrollment"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, revocation.ErrRevokedGlobal),
		errors.Is(err, revocation.ErrRevokedPairwise):
		return "revoked"
	case errors.Is(err, identity.ErrNotFound):
		return "not_found"
	case errors.Is(err, identity.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}

// enrollee is the ephemeral WebAuthn user for an enrollment ceremony.
// No identity exists until the ceremony completes, so the only stable
// attribute is the randomly minted user handle.
type enrollee struct {
	handle []byte
}

func (e *enrollee) WebAuthnID() []byte {
	return e.handle
}

func (e *enrollee) WebAuthnName() string {
	return base64.RawURLEncoding.EncodeToString(e.handle)
}

func (e *enrollee) WebAuthnDisplayName() string {
	return "New Identity"
}

func (e *enrollee) WebAuthnCredentials() []webauthn.Credential {
	return nil
}
