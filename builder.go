package authcore

import (
	"errors"
	"time"

	"github.com/axelferr/authcore/internal/rate"
	"github.com/axelferr/authcore/password"
	"github.com/axelferr/authcore/session"
	"github.com/redis/go-redis/v9"
)

// decoyCredential feeds one hash verification on the unknown-identifier
// path so its timing matches a real verification failure.
const decoyCredential = "authcore-decoy-credential"

// Builder assembles an [Engine]. A Builder is single-use: Build can be
// called once.
type Builder struct {
	config        Config
	redis         redis.UniversalClient
	identityStore IdentityStore
	auditSink     AuditSink
	clock         func() time.Time

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the session store and the
// failure counters.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityStore injects the credential store.
func (b *Builder) WithIdentityStore(store IdentityStore) *Builder {
	b.identityStore = store
	return b
}

// WithAuditSink sets the sink receiving structured events. The sink is only
// consulted when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the engine's time source. Intended for tests and
// replay tooling; production engines keep time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithAuditEnabled(enabled bool) *Builder {
	b.config.Audit.Enabled = enabled
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns a ready
// Engine. The one hash performed here is the decoy credential.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if err := validateConfig(b.config); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.identityStore == nil {
		return nil, errors.New("identity store is required")
	}

	hasher, err := password.New(b.config.Hash.Algorithm, password.Params{
		Memory:      b.config.Hash.Memory,
		Time:        b.config.Hash.Time,
		Parallelism: b.config.Hash.Parallelism,
		SaltLength:  b.config.Hash.SaltLength,
		KeyLength:   b.config.Hash.KeyLength,
		BcryptCost:  b.config.Hash.BcryptCost,
	})
	if err != nil {
		return nil, err
	}

	decoy, err := hasher.Hash(decoyCredential)
	if err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:     b.config,
		identities: b.identityStore,
		sessions:   session.NewStore(b.redis, b.config.Session.RedisPrefix),
		failures:   rate.New(b.redis, b.config.Lockout.Window),
		hasher:     hasher,
		decoyHash:  decoy,
		audit:      newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:    NewMetrics(b.config.Metrics),
		now:        clock,
	}

	b.built = true
	return engine, nil
}
