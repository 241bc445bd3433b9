// Package authcore implements credential authentication and server-side
// session lifecycle management: a Redis-backed session store, an
// authenticator with failure-driven account lockout, and a session guard
// for validating, refreshing, and revoking opaque bearer tokens.
//
// The package is designed for concurrent request-parallel workloads: Engine
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the store contracts ([IdentityStore]), and value types. Failure counting
// lives under internal/ and is never exported. HTTP dispatch belongs to the
// caller; the middleware sub-package shows the canonical bearer-token
// mapping without owning it.
//
// # What this package must NOT do
//
//   - Derive anything from a token's contents on behalf of a client: tokens
//     are opaque capabilities, valid only against the session store.
//   - Collapse error kinds internally. [ErrStoreUnavailable] is retryable;
//     credential and token errors are terminal for the request and callers
//     need to tell them apart. Only [PublicMessage] flattens them, at the
//     user-facing boundary.
//   - Perform I/O outside of Engine methods (construction via Builder hashes
//     one decoy credential and is otherwise allocation-only until Build).
package authcore
