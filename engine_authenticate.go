package authcore

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/axelferr/authcore/session"
)

// Grant is the result of a successful authentication: the opaque wire token
// and the stored session it references. The token exists only here; the
// store keeps a hash.
type Grant struct {
	Token   string
	Session session.Session
}

// Authenticate verifies a credential against the identity store and, on
// success, issues a new session.
//
// An unknown identifier and a wrong secret both return
// [ErrInvalidCredentials]; locked, disabled, and deleted identities return
// [ErrAccountUnavailable]. Each verification failure counts toward lockout;
// success resets the counter.
func (e *Engine) Authenticate(ctx context.Context, identifier, credential string) (*Grant, error) {
	if e == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	if identifier == "" || credential == "" {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "empty_input",
			}
		})
		return nil, ErrInvalidCredentials
	}

	ident, err := e.identities.GetByIdentifier(opctx, identifier)
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		// Burn one verification against the decoy hash so the unknown-
		// identifier path is not distinguishable from a wrong secret by
		// timing.
		_, _ = e.hasher.Verify(credential, e.decoyHash)
		return nil, e.recordFailure(ctx, opctx, identifier, nil, "identifier_unknown")
	case err != nil:
		e.metricInc(MetricStoreUnavailable)
		return nil, e.storeErr(err)
	}

	if ident.Status != StatusActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, ident.ID, "", ErrAccountUnavailable, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"status":     ident.Status.String(),
			}
		})
		return nil, ErrAccountUnavailable
	}

	ok, err := e.hasher.Verify(credential, ident.CredentialHash)
	if err != nil {
		// Stored hash is unreadable. Treated as a mismatch so the caller
		// learns nothing about the record.
		log.Print("authcore: stored credential hash unreadable")
		return nil, e.recordFailure(ctx, opctx, identifier, &ident, "credential_hash_unreadable")
	}
	if !ok {
		return nil, e.recordFailure(ctx, opctx, identifier, &ident, "credential_mismatch")
	}

	if err := e.failures.Reset(opctx, identifier); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, e.storeErr(err)
	}

	grant, err := e.issueSession(opctx, ident.ID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, ident.ID, grant.Session.ID, nil, nil)

	return grant, nil
}

// issueSession mints the token pair, persists the session, and returns the
// grant. The Redis TTL equals the logical time-to-expiry, so a session
// issued for a caller that went away self-collects.
func (e *Engine) issueSession(ctx context.Context, identityID string) (*Grant, error) {
	sid, err := session.NewID()
	if err != nil {
		return nil, err
	}
	secret, err := session.NewSecret()
	if err != nil {
		return nil, err
	}

	now := e.now()
	sess := session.Session{
		ID:         sid.String(),
		IdentityID: identityID,
		TokenHash:  session.HashSecret(secret),
		CreatedAt:  now.UnixMilli(),
		ExpiresAt:  now.Add(e.config.Session.TTL).UnixMilli(),
		LastSeenAt: now.UnixMilli(),
	}

	if err := e.sessions.Save(ctx, &sess, e.config.Session.TTL); err != nil {
		return nil, e.storeErr(err)
	}

	token, err := session.EncodeToken(sess.ID, secret)
	if err != nil {
		return nil, err
	}

	return &Grant{Token: token, Session: sess}, nil
}

// recordFailure counts one verification failure and trips the lockout when
// the identity reaches the configured threshold inside the window.
func (e *Engine) recordFailure(
	ctx, opctx context.Context,
	identifier string,
	ident *IdentityRecord,
	reason string,
) error {
	count, err := e.failures.RecordFailure(opctx, identifier)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}

	identityID := ""
	if ident != nil {
		identityID = ident.ID
	}
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, identityID, "", ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     reason,
		}
	})

	if ident != nil && ident.Status == StatusActive && count >= int64(e.config.Lockout.Threshold) {
		if err := e.identities.SetStatus(opctx, ident.ID, StatusLocked); err != nil {
			log.Print("authcore: lockout status update failed")
		} else {
			e.metricInc(MetricAccountLockout)
			e.emitAudit(ctx, auditEventAccountLockout, false, ident.ID, "", ErrAccountUnavailable, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"failures":   strconv.FormatInt(count, 10),
				}
			})
		}
	}

	return ErrInvalidCredentials
}
