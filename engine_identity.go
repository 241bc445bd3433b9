package authcore

import (
	"context"
	"errors"
	"log"
)

// SetIdentityStatus transitions an identity between lifecycle states. Any
// transition away from active revokes the identity's sessions, so a lock,
// disable, or delete takes effect immediately rather than at next expiry.
//
// Identity records are never removed: deletion is the StatusDeleted
// tombstone, which also satisfies the no-dangling-sessions invariant
// through the same cascade.
func (e *Engine) SetIdentityStatus(ctx context.Context, id string, status IdentityStatus) error {
	if e == nil || e.identities == nil {
		return ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	ident, err := e.identities.GetByID(opctx, id)
	if errors.Is(err, ErrIdentityNotFound) {
		return ErrIdentityNotFound
	}
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}
	if ident.Status == status {
		return nil
	}

	// Status flips before the sweep: the authenticate path checks status,
	// so no new session can be minted for a non-active identity while the
	// cascade runs.
	if err := e.identities.SetStatus(opctx, id, status); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}

	if status != StatusActive {
		if _, err := e.RevokeAllForIdentity(ctx, id); err != nil {
			log.Print("authcore: session cascade failed after status change")
			return err
		}
	}

	e.metricInc(MetricStatusChanged)
	e.emitAudit(ctx, auditEventStatusChanged, true, id, "", nil, func() map[string]string {
		return map[string]string{
			"from": ident.Status.String(),
			"to":   status.String(),
		}
	})

	return nil
}

// RotateCredential replaces an identity's credential after verifying the
// current one, then revokes the identity's sessions so nothing minted under
// the old credential survives.
func (e *Engine) RotateCredential(ctx context.Context, id, current, next string) error {
	if e == nil || e.identities == nil {
		return ErrEngineNotReady
	}

	opctx, cancel := e.opCtx(ctx)
	defer cancel()

	ident, err := e.identities.GetByID(opctx, id)
	if errors.Is(err, ErrIdentityNotFound) {
		return ErrIdentityNotFound
	}
	if err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}
	if ident.Status != StatusActive {
		return ErrAccountUnavailable
	}

	ok, err := e.hasher.Verify(current, ident.CredentialHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	hash, err := e.hasher.Hash(next)
	if err != nil {
		return err
	}

	if err := e.identities.UpdateCredentialHash(opctx, id, hash); err != nil {
		e.metricInc(MetricStoreUnavailable)
		return e.storeErr(err)
	}

	if _, err := e.RevokeAllForIdentity(ctx, id); err != nil {
		log.Print("authcore: session cascade failed after credential rotation")
		return err
	}

	e.metricInc(MetricCredentialRotated)
	e.emitAudit(ctx, auditEventCredentialRotated, true, id, "", nil, nil)

	return nil
}
