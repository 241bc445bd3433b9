package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axelferr/authcore/internal/rate"
	"github.com/axelferr/authcore/password"
	"github.com/axelferr/authcore/session"
)

// Engine is the authenticator and session guard over the two injected
// stores. Instances are configured through [Builder.Build] and immutable
// afterwards; methods are safe for concurrent use.
type Engine struct {
	config     Config
	identities IdentityStore
	sessions   *session.Store
	failures   *rate.Counter
	hasher     password.Hasher
	decoyHash  string
	audit      *auditDispatcher
	metrics    *Metrics
	now        func() time.Time
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// opCtx bounds one store interaction. A timeout surfaces to the caller as
// ErrStoreUnavailable through storeErr.
func (e *Engine) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Store.OpTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.config.Store.OpTimeout)
}

// storeErr maps any store-layer failure onto the retryable kind.
func (e *Engine) storeErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID, sessionID string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  e.now(),
		EventType:  eventType,
		IdentityID: identityID,
		SessionID:  sessionID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}
