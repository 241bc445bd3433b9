package authcore

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig maps the recognized environment knobs. Unset variables keep the
// package defaults.
type envConfig struct {
	SessionTTL       time.Duration `env:"AUTHCORE_SESSION_TTL"`
	RefreshWindow    time.Duration `env:"AUTHCORE_REFRESH_WINDOW"`
	MaxSessionAge    time.Duration `env:"AUTHCORE_MAX_SESSION_AGE"`
	LockoutThreshold int           `env:"AUTHCORE_LOCKOUT_THRESHOLD"`
	LockoutWindow    time.Duration `env:"AUTHCORE_LOCKOUT_WINDOW"`
	HashAlgorithm    string        `env:"AUTHCORE_HASH_ALGORITHM"`
	RedisPrefix      string        `env:"AUTHCORE_REDIS_PREFIX"`
	StoreOpTimeout   time.Duration `env:"AUTHCORE_STORE_OP_TIMEOUT"`
	AuditEnabled     bool          `env:"AUTHCORE_AUDIT_ENABLED"`
	MetricsEnabled   bool          `env:"AUTHCORE_METRICS_ENABLED"`
}

// ConfigFromEnv builds a [Config] from AUTHCORE_* environment variables
// layered over the defaults. The result still goes through validation at
// [Builder.Build].
func ConfigFromEnv() (Config, error) {
	cfg := defaultConfig()

	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, err
	}

	if e.SessionTTL > 0 {
		cfg.Session.TTL = e.SessionTTL
	}
	if e.RefreshWindow > 0 {
		cfg.Session.RefreshWindow = e.RefreshWindow
	}
	if e.MaxSessionAge > 0 {
		cfg.Session.MaxAge = e.MaxSessionAge
	}
	if e.LockoutThreshold > 0 {
		cfg.Lockout.Threshold = e.LockoutThreshold
	}
	if e.LockoutWindow > 0 {
		cfg.Lockout.Window = e.LockoutWindow
	}
	if e.HashAlgorithm != "" {
		cfg.Hash.Algorithm = e.HashAlgorithm
	}
	if e.RedisPrefix != "" {
		cfg.Session.RedisPrefix = e.RedisPrefix
	}
	if e.StoreOpTimeout > 0 {
		cfg.Store.OpTimeout = e.StoreOpTimeout
	}
	cfg.Audit.Enabled = e.AuditEnabled
	cfg.Metrics.Enabled = e.MetricsEnabled

	return cfg, nil
}
