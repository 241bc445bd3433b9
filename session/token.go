package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ID is the random per-session identifier embedded in wire tokens.
type ID [16]byte

const (
	secretSize   = 32
	tokenRawSize = len(ID{}) + secretSize
)

// ErrTokenMalformed is returned by DecodeToken for input that is not a
// well-formed wire token.
var ErrTokenMalformed = errors.New("malformed session token")

// NewID returns a cryptographically random session ID.
func NewID() (ID, error) {
	var sid ID
	_, err := rand.Read(sid[:])
	return sid, err
}

// String renders the ID as compact unpadded base64url, the form used in
// Redis keys and inside wire tokens.
func (s ID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseID decodes the base64url form produced by [ID.String].
func ParseID(sessionID string) (ID, error) {
	var sid ID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, ErrTokenMalformed
	}
	if len(raw) != len(sid) {
		return sid, ErrTokenMalformed
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewSecret returns a fresh random token secret.
func NewSecret() ([secretSize]byte, error) {
	var secret [secretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashSecret is the only form of the secret the store is allowed to persist.
func HashSecret(secret [secretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeToken assembles the opaque wire token for a session.
func EncodeToken(sessionID string, secret [secretSize]byte) (string, error) {
	sid, err := ParseID(sessionID)
	if err != nil {
		return "", err
	}

	var raw [tokenRawSize]byte
	copy(raw[:len(sid)], sid[:])
	copy(raw[len(sid):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeToken splits a wire token back into session ID and secret.
func DecodeToken(token string) (string, [secretSize]byte, error) {
	var secret [secretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, ErrTokenMalformed
	}
	if len(raw) != tokenRawSize {
		return "", secret, ErrTokenMalformed
	}

	var sid ID
	copy(sid[:], raw[:len(sid)])
	copy(secret[:], raw[len(sid):])

	return sid.String(), secret, nil
}
