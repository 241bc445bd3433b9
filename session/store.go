package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps any Redis transport or script failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned when no record exists for a session ID.
var ErrNotFound = errors.New("session not found")

// ErrCorruptRecord is returned when a stored record cannot be decoded.
var ErrCorruptRecord = errors.New("session record corrupt")

const (
	fieldIdentity  = "identity"
	fieldTokenHash = "token_hash"
	fieldCreatedAt = "created_at"
	fieldExpiresAt = "expires_at"
	fieldLastSeen  = "last_seen"
	fieldRevoked   = "revoked"
)

const (
	mutateStatusMissing int64 = 0
	mutateStatusRevoked int64 = -1
	mutateStatusApplied int64 = 1
)

// touchScript updates last-seen only while the record exists and is not
// revoked. Single script so a concurrent revoke cannot be overwritten.
const touchScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return -1
end
redis.call("HSET", KEYS[1], "last_seen", ARGV[1])
return 1
`

// revokeScript sets the revoked flag without resurrecting deleted keys.
// The record keeps its TTL so tombstones self-collect.
const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1")
return 1
`

// extendScript moves the expiry and the key TTL together, refusing revoked
// or vanished records.
const extendScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return -1
end
redis.call("HSET", KEYS[1], "expires_at", ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`

var (
	touchLua  = redis.NewScript(touchScript)
	revokeLua = redis.NewScript(revokeScript)
	extendLua = redis.NewScript(extendScript)
)

// Store is a Redis-backed session store handling persistence, per-record
// atomic mutation, and per-identity indexing for cascade revocation.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix namespaces every key this store touches.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) identityKey(identityID string) string {
	return s.prefix + ":u:" + identityID
}

// Save persists a session and indexes it under its identity. The record TTL
// is bound to the session expiry, so a session issued to a caller that went
// away is collected by Redis without a sweeper.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	sessionKey := s.key(sess.ID)
	identityKey := s.identityKey(sess.IdentityID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKey,
			fieldIdentity, sess.IdentityID,
			fieldTokenHash, base64.StdEncoding.EncodeToString(sess.TokenHash[:]),
			fieldCreatedAt, strconv.FormatInt(sess.CreatedAt, 10),
			fieldExpiresAt, strconv.FormatInt(sess.ExpiresAt, 10),
			fieldLastSeen, strconv.FormatInt(sess.LastSeenAt, 10),
			fieldRevoked, boolField(sess.Revoked),
		)
		pipe.PExpire(ctx, sessionKey, ttl)
		pipe.SAdd(ctx, identityKey, sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves a session by ID. Returns [ErrNotFound] when the record is
// absent, which covers both never-existed and TTL-collected sessions.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	return decodeFields(sessionID, fields)
}

// Touch records validation-time activity on a live session.
func (s *Store) Touch(ctx context.Context, sessionID string, lastSeen int64) error {
	status, err := touchLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		strconv.FormatInt(lastSeen, 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status == mutateStatusMissing {
		return ErrNotFound
	}

	return nil
}

// Revoke flags a session revoked. The returned bool reports whether a record
// existed; callers treating revocation as idempotent can ignore it.
func (s *Store) Revoke(ctx context.Context, sessionID string) (bool, error) {
	status, err := revokeLua.Run(ctx, s.redis, []string{s.key(sessionID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return status == mutateStatusApplied, nil
}

// Extend moves a live session's expiry forward. The key TTL follows the new
// expiry. Revoked and missing records are left alone.
func (s *Store) Extend(ctx context.Context, sessionID string, expiresAt int64, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", ttl)
	}

	status, err := extendLua.Run(ctx, s.redis,
		[]string{s.key(sessionID)},
		strconv.FormatInt(expiresAt, 10),
		strconv.FormatInt(ttl.Milliseconds(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	switch status {
	case mutateStatusMissing:
		return ErrNotFound
	case mutateStatusRevoked:
		return ErrNotFound
	}

	return nil
}

// Delete removes a session record and its identity-index entry. Deleting a
// missing session is a no-op.
func (s *Store) Delete(ctx context.Context, sessionID, identityID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(sessionID))
		pipe.SRem(ctx, s.identityKey(identityID), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// SessionsForIdentity returns every stored session for an identity,
// pruning index entries whose records were TTL-collected.
func (s *Store) SessionsForIdentity(ctx context.Context, identityID string) ([]*Session, error) {
	ids, err := s.redis.SMembers(ctx, s.identityKey(identityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sessions := make([]*Session, 0, len(ids))
	var stale []string
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if len(stale) > 0 {
		members := make([]interface{}, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		if err := s.redis.SRem(ctx, s.identityKey(identityID), members...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sessions, nil
}

// RevokeAllForIdentity revokes every session indexed for an identity and
// returns how many live records were flagged.
//
// ATOMICITY NOTE: this operation is NOT fully atomic. It reads the identity's
// session set and then revokes each member; a session created between the
// read and the revocation sweep is not captured. Callers that need a hard
// cut-off (status transitions away from active) change the identity status
// first, so the authenticate path cannot mint new sessions during the sweep.
func (s *Store) RevokeAllForIdentity(ctx context.Context, identityID string) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.identityKey(identityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	revoked := 0
	for _, id := range ids {
		existed, err := s.Revoke(ctx, id)
		if err != nil {
			return revoked, err
		}
		if existed {
			revoked++
		}
	}

	return revoked, nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func decodeFields(sessionID string, fields map[string]string) (*Session, error) {
	sess := &Session{
		ID:         sessionID,
		IdentityID: fields[fieldIdentity],
		Revoked:    fields[fieldRevoked] == "1",
	}
	if sess.IdentityID == "" {
		return nil, ErrCorruptRecord
	}

	rawHash, err := base64.StdEncoding.DecodeString(fields[fieldTokenHash])
	if err != nil || len(rawHash) != len(sess.TokenHash) {
		return nil, ErrCorruptRecord
	}
	copy(sess.TokenHash[:], rawHash)

	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{fieldCreatedAt, &sess.CreatedAt},
		{fieldExpiresAt, &sess.ExpiresAt},
		{fieldLastSeen, &sess.LastSeenAt},
	} {
		v, err := strconv.ParseInt(fields[f.name], 10, 64)
		if err != nil {
			return nil, ErrCorruptRecord
		}
		*f.dst = v
	}

	return sess, nil
}
