package session

import "time"

// Session is the stored representation of one authenticated session.
// Timestamps are unix milliseconds.
type Session struct {
	ID         string
	IdentityID string
	TokenHash  [32]byte
	CreatedAt  int64
	ExpiresAt  int64
	LastSeenAt int64
	Revoked    bool
}

// ExpiredAt reports whether the session is expired at the given instant.
// A session whose expiry equals the instant is already expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(time.UnixMilli(s.ExpiresAt))
}
