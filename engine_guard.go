package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"time"

	"github.com/axelferr/authcore/session"
)

// Validate resolves a wire token to its owning identity.
//
// It fails with [ErrTokenUnknown] for absent (or malformed) tokens,
// [ErrTokenExpired] past expiry, [ErrTokenRevoked] after revocation, and
// [ErrAccountUnavailable] when the identity is no longer active. On success
// the session's last-seen timestamp is updated.
func (e *Engine) Validate(ctx context.Context, token string) (IdentityRecord, error) {
	if e == nil || e.sessions == nil {
		return IdentityRecord{}, ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	sess, err := e.lookupSession(opctx, token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return IdentityRecord{}, err
	}

	ident, err := e.identityForSession(opctx, sess)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return IdentityRecord{}, err
	}

	if err := e.sessions.Touch(opctx, sess.ID, e.now().UnixMilli()); err != nil {
		// A session collected or revoked between lookup and touch is not a
		// validation failure; anything else is a store problem.
		if !errors.Is(err, session.ErrNotFound) {
			e.metricInc(MetricStoreUnavailable)
			return IdentityRecord{}, e.storeErr(err)
		}
	}

	e.metricInc(MetricValidateSuccess)
	return ident, nil
}

// Refresh validates the token and extends the session expiry by the
// configured TTL when the session is inside the refresh window. The
// extension never moves the expiry past CreatedAt+MaxAge; outside the
// window the session is returned unchanged.
func (e *Engine) Refresh(ctx context.Context, token string) (session.Session, error) {
	if e == nil || e.sessions == nil {
		return session.Session{}, ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	sess, err := e.lookupSession(opctx, token)
	if err != nil {
		return session.Session{}, err
	}
	if _, err := e.identityForSession(opctx, sess); err != nil {
		return session.Session{}, err
	}

	now := e.now()
	expiresAt := time.UnixMilli(sess.ExpiresAt)
	if expiresAt.Sub(now) > e.config.Session.RefreshWindow {
		e.metricInc(MetricRefreshUnchanged)
		return *sess, nil
	}

	newExpiry := now.Add(e.config.Session.TTL)
	if maxExpiry := time.UnixMilli(sess.CreatedAt).Add(e.config.Session.MaxAge); newExpiry.After(maxExpiry) {
		newExpiry = maxExpiry
	}
	if !newExpiry.After(expiresAt) {
		// Already at the absolute cap.
		e.metricInc(MetricRefreshUnchanged)
		return *sess, nil
	}

	if err := e.sessions.Extend(opctx, sess.ID, newExpiry.UnixMilli(), newExpiry.Sub(now)); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Raced with a revoke or TTL collection.
			return session.Session{}, ErrTokenUnknown
		}
		e.metricInc(MetricStoreUnavailable)
		return session.Session{}, e.storeErr(err)
	}

	sess.ExpiresAt = newExpiry.UnixMilli()
	e.metricInc(MetricRefreshExtended)
	e.emitAudit(ctx, auditEventSessionRefreshed, true, sess.IdentityID, sess.ID, nil, nil)

	return *sess, nil
}

// Revoke flags the token's session revoked. It is idempotent and never
// errors for unknown, expired, or already-revoked tokens, so logout flows
// cannot leak token existence and need no special casing.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	sessionID, secret, err := session.DecodeToken(token)
	if err != nil {
		return nil
	}

	sess, err := e.sessions.Get(opctx, sessionID)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorruptRecord) {
		return nil
	}
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}

	hash := session.HashSecret(secret)
	if subtle.ConstantTimeCompare(hash[:], sess.TokenHash[:]) != 1 {
		return nil
	}

	existed, err := e.sessions.Revoke(opctx, sessionID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}

	if existed && !sess.Revoked {
		e.metricInc(MetricSessionRevoked)
		e.emitAudit(ctx, auditEventSessionRevoked, true, sess.IdentityID, sess.ID, nil, nil)
	}

	return nil
}

// RevokeAllForIdentity revokes every session held by an identity. Used by
// the deletion/status cascade and exposed for "log out everywhere" flows.
func (e *Engine) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	if e == nil || e.sessions == nil {
		return 0, ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	revoked, err := e.sessions.RevokeAllForIdentity(opctx, identityID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return revoked, e.storeErr(err)
	}

	if revoked > 0 {
		e.metricInc(MetricSessionRevokedAll)
		e.emitAudit(ctx, auditEventSessionRevokedAll, true, identityID, "", nil, nil)
	}

	return revoked, nil
}

// Sessions lists an identity's live sessions: stored, unrevoked, and not yet
// expired at the engine clock.
func (e *Engine) Sessions(ctx context.Context, identityID string) ([]session.Session, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	stored, err := e.sessions.SessionsForIdentity(opctx, identityID)
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, e.storeErr(err)
	}

	now := e.now()
	live := make([]session.Session, 0, len(stored))
	for _, sess := range stored {
		if sess.Revoked || sess.ExpiredAt(now) {
			continue
		}
		live = append(live, *sess)
	}

	return live, nil
}

// lookupSession decodes the token, loads the session, and applies the
// token-level gates in order: unknown, expired, revoked.
func (e *Engine) lookupSession(ctx context.Context, token string) (*session.Session, error) {
	sessionID, secret, err := session.DecodeToken(token)
	if err != nil {
		return nil, ErrTokenUnknown
	}

	sess, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorruptRecord) {
		return nil, ErrTokenUnknown
	}
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return nil, e.storeErr(err)
	}

	hash := session.HashSecret(secret)
	if subtle.ConstantTimeCompare(hash[:], sess.TokenHash[:]) != 1 {
		return nil, ErrTokenUnknown
	}

	if sess.ExpiredAt(e.now()) {
		// Opportunistic tombstone collection; Redis TTL is the backstop.
		if err := e.sessions.Delete(ctx, sess.ID, sess.IdentityID); err != nil {
			log.Print("authcore: expired session cleanup failed")
		}
		return nil, ErrTokenExpired
	}

	if sess.Revoked {
		return nil, ErrTokenRevoked
	}

	return sess, nil
}

// identityForSession enforces that the session's owner still exists and is
// active.
func (e *Engine) identityForSession(ctx context.Context, sess *session.Session) (IdentityRecord, error) {
	ident, err := e.identities.GetByID(ctx, sess.IdentityID)
	if errors.Is(err, ErrIdentityNotFound) {
		return IdentityRecord{}, ErrAccountUnavailable
	}
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return IdentityRecord{}, e.storeErr(err)
	}
	if ident.Status != StatusActive {
		return IdentityRecord{}, ErrAccountUnavailable
	}

	return ident, nil
}
