package authcore

import "errors"

var (
	// ErrInvalidCredentials is returned for a wrong secret and for an
	// unknown identifier alike, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountUnavailable is returned when the identity exists but is
	// locked, disabled, or deleted.
	ErrAccountUnavailable = errors.New("account unavailable")
	// ErrTokenUnknown is returned when no session exists for a token. It
	// also covers malformed tokens and secret mismatches.
	ErrTokenUnknown = errors.New("token unknown")
	// ErrTokenExpired is returned when the session's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when the session was explicitly revoked.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrStoreUnavailable is returned when a backing store times out or
	// fails. It is the only kind eligible for caller-side retry.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIdentityNotFound is returned by [IdentityStore] implementations
	// for a missing record. The authenticate path converts it to
	// [ErrInvalidCredentials]; administrative paths surface it as-is.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrEngineNotReady is returned when the Engine was not built through
	// [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
)

const (
	publicAuthFailed  = "authentication failed"
	publicUnavailable = "service unavailable"
)

// PublicMessage collapses an authcore error into the message safe to show an
// end user. Credential and token errors flatten to one generic string so the
// boundary leaks nothing; internal logs keep the precise kind.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStoreUnavailable):
		return publicUnavailable
	default:
		return publicAuthFailed
	}
}

// Retryable reports whether the caller may retry the operation as-is.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
