package identitystore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/axelferr/authcore"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	fieldIdentifier = "identifier"
	fieldCredential = "credential_hash"
	fieldStatus     = "status"
)

// setFieldScript updates one field of an existing identity record without
// resurrecting keys that were never created.
const setFieldScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`

var setFieldLua = redis.NewScript(setFieldScript)

// Redis is an identity store keeping one hash per identity under
// <prefix>:i:<id> and an identifier index under <prefix>:x:<identifier>.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed identity store.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		redis:  client,
		prefix: prefix,
	}
}

func (r *Redis) key(id string) string {
	return r.prefix + ":i:" + id
}

func (r *Redis) indexKey(identifier string) string {
	return r.prefix + ":x:" + normalizeIdentifier(identifier)
}

// Create registers a new active identity. The identifier index is claimed
// with SETNX first, so two concurrent registrations cannot share one
// identifier.
func (r *Redis) Create(ctx context.Context, identifier, credentialHash string) (authcore.IdentityRecord, error) {
	key := normalizeIdentifier(identifier)
	if key == "" {
		return authcore.IdentityRecord{}, errors.New("identifier must not be empty")
	}

	rec := authcore.IdentityRecord{
		ID:             uuid.NewString(),
		Identifier:     key,
		CredentialHash: credentialHash,
		Status:         authcore.StatusActive,
	}

	claimed, err := r.redis.SetNX(ctx, r.indexKey(key), rec.ID, 0).Result()
	if err != nil {
		return authcore.IdentityRecord{}, r.storeErr(err)
	}
	if !claimed {
		return authcore.IdentityRecord{}, ErrIdentifierTaken
	}

	err = r.redis.HSet(ctx, r.key(rec.ID),
		fieldIdentifier, rec.Identifier,
		fieldCredential, rec.CredentialHash,
		fieldStatus, strconv.Itoa(int(rec.Status)),
	).Err()
	if err != nil {
		return authcore.IdentityRecord{}, r.storeErr(err)
	}

	return rec, nil
}

func (r *Redis) GetByIdentifier(ctx context.Context, identifier string) (authcore.IdentityRecord, error) {
	id, err := r.redis.Get(ctx, r.indexKey(identifier)).Result()
	if errors.Is(err, redis.Nil) {
		return authcore.IdentityRecord{}, authcore.ErrIdentityNotFound
	}
	if err != nil {
		return authcore.IdentityRecord{}, r.storeErr(err)
	}

	return r.GetByID(ctx, id)
}

func (r *Redis) GetByID(ctx context.Context, id string) (authcore.IdentityRecord, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return authcore.IdentityRecord{}, r.storeErr(err)
	}
	if len(fields) == 0 {
		return authcore.IdentityRecord{}, authcore.ErrIdentityNotFound
	}

	status, err := strconv.Atoi(fields[fieldStatus])
	if err != nil {
		return authcore.IdentityRecord{}, fmt.Errorf("identity record corrupt: %v", err)
	}

	return authcore.IdentityRecord{
		ID:             id,
		Identifier:     fields[fieldIdentifier],
		CredentialHash: fields[fieldCredential],
		Status:         authcore.IdentityStatus(status),
	}, nil
}

func (r *Redis) UpdateCredentialHash(ctx context.Context, id, credentialHash string) error {
	return r.setField(ctx, id, fieldCredential, credentialHash)
}

func (r *Redis) SetStatus(ctx context.Context, id string, status authcore.IdentityStatus) error {
	return r.setField(ctx, id, fieldStatus, strconv.Itoa(int(status)))
}

func (r *Redis) setField(ctx context.Context, id, field, value string) error {
	applied, err := setFieldLua.Run(ctx, r.redis, []string{r.key(id)}, field, value).Int64()
	if err != nil {
		return r.storeErr(err)
	}
	if applied == 0 {
		return authcore.ErrIdentityNotFound
	}
	return nil
}

func (r *Redis) storeErr(err error) error {
	return fmt.Errorf("%w: %v", authcore.ErrStoreUnavailable, err)
}
