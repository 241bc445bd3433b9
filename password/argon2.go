package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	argon2ID              = "argon2id"
)

// Argon2 hashes credentials with argon2id and encodes them in PHC string
// format, so each stored hash carries its own salt and parameters.
type Argon2 struct {
	memory      uint32
	time        uint32
	parallelism uint8
	saltLength  uint32
	keyLength   uint32
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2 validates params against hard floors and returns a hasher.
// Zero-valued params take the package defaults (64 MiB, t=3, p=2,
// 16-byte salt, 32-byte key).
func NewArgon2(params Params) (*Argon2, error) {
	a := &Argon2{
		memory:      params.Memory,
		time:        params.Time,
		parallelism: params.Parallelism,
		saltLength:  params.SaltLength,
		keyLength:   params.KeyLength,
	}
	if a.memory == 0 {
		a.memory = 64 * 1024
	}
	if a.time == 0 {
		a.time = 3
	}
	if a.parallelism == 0 {
		a.parallelism = 2
	}
	if a.saltLength == 0 {
		a.saltLength = 16
	}
	if a.keyLength == 0 {
		a.keyLength = 32
	}

	switch {
	case a.memory < minMemoryKB:
		return nil, fmt.Errorf("argon2 memory below %d KiB floor", minMemoryKB)
	case a.time < minTimeCost:
		return nil, errors.New("argon2 time cost below floor")
	case a.parallelism < minParallelism:
		return nil, errors.New("argon2 parallelism below floor")
	case a.saltLength < minSaltLength:
		return nil, fmt.Errorf("argon2 salt below %d bytes", minSaltLength)
	case a.keyLength < minKeyLength:
		return nil, fmt.Errorf("argon2 key below %d bytes", minKeyLength)
	}

	return a, nil
}

// Hash derives an argon2id hash for the secret and encodes it as a PHC
// string: $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func (a *Argon2) Hash(secret string) (string, error) {
	if len(secret) < minSecretBytes {
		return "", fmt.Errorf("secret must be at least %d bytes", minSecretBytes)
	}

	salt := make([]byte, a.saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, a.time, a.memory, a.parallelism, a.keyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID,
		argon2.Version,
		a.memory,
		a.time,
		a.parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// Verify recomputes the hash with the parameters embedded in encodedHash and
// compares in constant time.
func (a *Argon2) Verify(secret, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != argon2ID {
		return nil, errors.New("unsupported algorithm tag")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	parsed := &parsedPHC{}
	for _, pair := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter format")
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, errors.New("invalid parameter value")
		}
		switch key {
		case "m":
			parsed.memory = uint32(n)
		case "t":
			parsed.time = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return nil, errors.New("invalid parallelism")
			}
			parsed.parallelism = uint8(n)
		default:
			return nil, errors.New("unknown parameter")
		}
	}
	if parsed.memory == 0 || parsed.time == 0 || parsed.parallelism == 0 {
		return nil, errors.New("incomplete parameters")
	}

	parsed.salt, err = base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(parsed.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}

	parsed.hash, err = base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(parsed.hash) == 0 {
		return nil, errors.New("invalid hash")
	}

	return parsed, nil
}
