package session

import (
	"context"
	"fmt"
	"time"

	"identra.org/internal/identity"
)

// Service applies session policy over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	return &Service{store: store, now: time.Now}, nil
}

// Persist records a freshly minted refresh token for a principal.
func (s *Service) Persist(ctx context.Context, kind identity.Kind, principalID, rawToken, userAgent, ip string, expiresAt time.Time) (*Session, error) {
	sess := &Session{
		Kind:        kind,
		PrincipalID: principalID,
		TokenHash:   HashToken(rawToken),
		UserAgent:   userAgent,
		IP:          ip,
		ExpiresAt:   expiresAt.UTC(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Validate resolves a raw refresh token to its live session. Revoked and
// expired sessions fail identically with ErrSessionNotFound.
func (s *Service) Validate(ctx context.Context, rawToken string) (*Session, error) {
	sess, err := s.store.FindByTokenHash(ctx, HashToken(rawToken))
	if err != nil {
		return nil, err
	}
	if !sess.Live(s.now().UTC()) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Rotate exchanges a live session for a new one. The replacement is
// persisted before the old session is revoked so a crash between the two
// steps leaves the principal with at least one usable token.
func (s *Service) Rotate(ctx context.Context, oldRaw, newRaw, userAgent, ip string, expiresAt time.Time) (*Session, error) {
	old, err := s.Validate(ctx, oldRaw)
	if err != nil {
		return nil, err
	}
	next, err := s.Persist(ctx, old.Kind, old.PrincipalID, newRaw, userAgent, ip, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.store.RevokeByTokenHash(ctx, old.TokenHash); err != nil {
		return nil, fmt.Errorf("revoke replaced session: %w", err)
	}
	return next, nil
}

// RevokeByToken ends a single session by its raw token.
func (s *Service) RevokeByToken(ctx context.Context, rawToken string) error {
	return s.store.RevokeByTokenHash(ctx, HashToken(rawToken))
}

// RevokeByPrincipal ends every live session held by a principal. Satisfies
// identity.SessionRevoker.
func (s *Service) RevokeByPrincipal(ctx context.Context, kind identity.Kind, principalID string) (int64, error) {
	return s.store.RevokeByPrincipal(ctx, kind, principalID)
}

// PurgeExpired removes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx)
}
