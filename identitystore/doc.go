// Package identitystore ships two [authcore.IdentityStore] adapters: an
// in-process Memory store for tests and single-node embedding, and a Redis
// store keeping one hash per identity plus an identifier index.
//
// Both mint identity IDs with github.com/google/uuid and report missing
// records as authcore.ErrIdentityNotFound. Neither ever removes a record;
// deletion is a status tombstone, matching the engine's cascade semantics.
package identitystore
