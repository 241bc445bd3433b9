package authcore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/axelferr/authcore/password"
	"github.com/redis/go-redis/v9"
)

// mockIdentityStore is a map-backed IdentityStore for engine tests.
type mockIdentityStore struct {
	mu           sync.Mutex
	byID         map[string]IdentityRecord
	byIdentifier map[string]string
	failing      bool
}

func newMockIdentityStore() *mockIdentityStore {
	return &mockIdentityStore{
		byID:         make(map[string]IdentityRecord),
		byIdentifier: make(map[string]string),
	}
}

func (m *mockIdentityStore) add(rec IdentityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[rec.ID] = rec
	m.byIdentifier[rec.Identifier] = rec.ID
}

func (m *mockIdentityStore) statusOf(id string) IdentityStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

func (m *mockIdentityStore) GetByIdentifier(_ context.Context, identifier string) (IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return IdentityRecord{}, ErrStoreUnavailable
	}
	id, ok := m.byIdentifier[identifier]
	if !ok {
		return IdentityRecord{}, ErrIdentityNotFound
	}
	return m.byID[id], nil
}

func (m *mockIdentityStore) GetByID(_ context.Context, id string) (IdentityRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return IdentityRecord{}, ErrStoreUnavailable
	}
	rec, ok := m.byID[id]
	if !ok {
		return IdentityRecord{}, ErrIdentityNotFound
	}
	return rec, nil
}

func (m *mockIdentityStore) UpdateCredentialHash(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrIdentityNotFound
	}
	rec.CredentialHash = hash
	m.byID[id] = rec
	return nil
}

func (m *mockIdentityStore) SetStatus(_ context.Context, id string, status IdentityStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return ErrIdentityNotFound
	}
	rec.Status = status
	m.byID[id] = rec
	return nil
}

// fakeClock is the engine's virtual time source in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// engineTestConfig keeps hashing cheap and lockout windows small.
func engineTestConfig() Config {
	cfg := defaultConfig()
	cfg.Hash.Memory = 8 * 1024
	cfg.Hash.Time = 1
	cfg.Hash.Parallelism = 1
	cfg.Hash.SaltLength = 16
	cfg.Hash.KeyLength = 16
	cfg.Lockout.Threshold = 3
	cfg.Lockout.Window = time.Minute
	return cfg
}

type testEnv struct {
	engine     *Engine
	identities *mockIdentityStore
	clock      *fakeClock
	redis      *miniredis.Miniredis
	hasher     password.Hasher
}

func newTestEngine(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	return newTestEngineWithSink(t, cfg, nil)
}

func newTestEngineWithSink(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	identities := newMockIdentityStore()
	clock := newFakeClock()

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityStore(identities).
		WithClock(clock.Now)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	hasher, err := password.New(cfg.Hash.Algorithm, password.Params{
		Memory:      cfg.Hash.Memory,
		Time:        cfg.Hash.Time,
		Parallelism: cfg.Hash.Parallelism,
		SaltLength:  cfg.Hash.SaltLength,
		KeyLength:   cfg.Hash.KeyLength,
		BcryptCost:  cfg.Hash.BcryptCost,
	})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	return &testEnv{
		engine:     engine,
		identities: identities,
		clock:      clock,
		redis:      mr,
		hasher:     hasher,
	}
}

// seedIdentity registers an identity with the given secret and returns it.
func (env *testEnv) seedIdentity(t *testing.T, id, identifier, secret string, status IdentityStatus) IdentityRecord {
	t.Helper()

	hash, err := env.hasher.Hash(secret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	rec := IdentityRecord{
		ID:             id,
		Identifier:     identifier,
		CredentialHash: hash,
		Status:         status,
	}
	env.identities.add(rec)
	return rec
}
