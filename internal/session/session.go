// Package session tracks refresh-token sessions. Tokens are stored only as
// SHA-256 digests; the raw token never touches the database.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"identra.org/internal/identity"
)

var (
	// ErrSessionNotFound means the presented token has no live session:
	// unknown, revoked or expired.
	ErrSessionNotFound = errors.New("session: not found")
)

// Session is one refresh-token grant held by a principal.
type Session struct {
	ID          string
	Kind        identity.Kind
	PrincipalID string
	TokenHash   string
	UserAgent   string
	IP          string
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	CreatedAt   time.Time
}

// Live reports whether the session is neither revoked nor expired at t.
func (s *Session) Live(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}

// HashToken digests a raw refresh token for storage and lookup.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
