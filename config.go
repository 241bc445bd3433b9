package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/axelferr/authcore/password"
)

// Config carries every tunable the engine recognizes. Instances are set up
// before [Builder.Build] and treated as immutable afterwards.
type Config struct {
	Session SessionConfig
	Lockout LockoutConfig
	Hash    HashConfig
	Audit   AuditConfig
	Metrics MetricsConfig
	Store   StoreConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and refresh behavior.
type SessionConfig struct {
	// RedisPrefix namespaces every session key.
	RedisPrefix string
	// TTL is the session lifetime granted at login and at each honored
	// refresh.
	TTL time.Duration
	// RefreshWindow is how close to expiry a refresh is honored. Outside
	// the window Refresh returns the session unchanged.
	RefreshWindow time.Duration
	// MaxAge caps a session's total lifetime regardless of refreshes,
	// measured from creation.
	MaxAge time.Duration
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls failure-driven account locking.
type LockoutConfig struct {
	// Threshold is the number of consecutive failures within Window that
	// locks the identity.
	Threshold int
	// Window is the fixed window in which failures accumulate.
	Window time.Duration
}

/*
====================================
HASH CONFIG
====================================
*/

// HashConfig selects and tunes the credential hashing scheme.
type HashConfig struct {
	// Algorithm is "argon2id" (default) or "bcrypt".
	Algorithm string

	// argon2id tuning.
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// bcrypt tuning.
	BcryptCost int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async event dispatcher feeding the audit sink.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig bounds store interactions.
type StoreConfig struct {
	// OpTimeout caps each store round trip; a timeout surfaces as
	// [ErrStoreUnavailable]. Zero disables the cap.
	OpTimeout time.Duration
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:   "ac",
			TTL:           30 * time.Minute,
			RefreshWindow: 5 * time.Minute,
			MaxAge:        12 * time.Hour,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Window:    15 * time.Minute,
		},
		Hash: HashConfig{
			Algorithm:   password.AlgorithmArgon2id,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			BcryptCost:  12,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		Store: StoreConfig{
			OpTimeout: 3 * time.Second,
		},
	}
}

// DefaultConfig returns the package defaults. Callers adjust fields and pass
// the result to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func validateConfig(cfg Config) error {
	if cfg.Session.RedisPrefix == "" {
		return errors.New("session redis prefix must not be empty")
	}
	if cfg.Session.TTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if cfg.Session.RefreshWindow <= 0 {
		return errors.New("session refresh window must be positive")
	}
	if cfg.Session.RefreshWindow > cfg.Session.TTL {
		return fmt.Errorf("refresh window %s exceeds session ttl %s", cfg.Session.RefreshWindow, cfg.Session.TTL)
	}
	if cfg.Session.MaxAge < cfg.Session.TTL {
		return fmt.Errorf("max session age %s below session ttl %s", cfg.Session.MaxAge, cfg.Session.TTL)
	}
	if cfg.Lockout.Threshold < 1 {
		return errors.New("lockout threshold must be at least 1")
	}
	if cfg.Lockout.Window <= 0 {
		return errors.New("lockout window must be positive")
	}
	if cfg.Store.OpTimeout < 0 {
		return errors.New("store op timeout must not be negative")
	}
	return nil
}
