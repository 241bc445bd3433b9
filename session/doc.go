// Package session implements the Redis-backed session store and the opaque
// session token codec used by authcore.
//
// # Token shape
//
// A wire token is base64url(sessionID || secret): a 16-byte random session ID
// followed by a 32-byte random secret. Only SHA-256(secret) is persisted, so
// a read of the store never yields a usable token. Clients can derive nothing
// from a token; it is an opaque capability.
//
// # Key layout
//
//   - <prefix>:s:<sessionID> — session record (Redis hash), TTL bound to the
//     record's expiry so abandoned sessions are garbage-collected by Redis.
//   - <prefix>:u:<identityID> — set of the identity's session IDs, used for
//     cascade revocation.
//
// # What this package must NOT do
//
//   - Decide authorization outcomes (expired/revoked/status policy lives in
//     the engine; the store only persists and mutates records atomically).
//   - Expose the token secret or persist it in any recoverable form.
package session
