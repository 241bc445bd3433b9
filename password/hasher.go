package password

import (
	"errors"
	"fmt"
	"strings"
)

// Hasher hashes credentials and verifies presented secrets against stored
// encoded hashes. Implementations must verify in constant time relative to
// the secret contents.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encodedHash string) (bool, error)
}

// Supported algorithm names for [New].
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// ErrUnsupportedAlgorithm is returned by [New] for unknown algorithm names.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// minSecretBytes is the floor on raw secret length accepted by Hash.
// Secrets are used exactly as provided (no Unicode normalization).
const minSecretBytes = 8

// Params carries tuning for the configured algorithm. Zero values fall back
// to each implementation's defaults.
type Params struct {
	// argon2id
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// bcrypt
	BcryptCost int
}

// New constructs a [Hasher] for the named algorithm.
func New(algorithm string, params Params) (Hasher, error) {
	switch strings.ToLower(algorithm) {
	case AlgorithmArgon2id:
		return NewArgon2(params)
	case AlgorithmBcrypt:
		return NewBcrypt(params.BcryptCost)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}
