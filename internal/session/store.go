package session

import (
	"context"

	"identra.org/internal/identity"
)

// Store persists sessions.
type Store interface {
	Create(ctx context.Context, s *Session) error
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
	RevokeByTokenHash(ctx context.Context, hash string) error
	RevokeByPrincipal(ctx context.Context, kind identity.Kind, principalID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
