package session

import (
	"context"
	"database/sql"
	"errors"

	"identra.org/internal/identity"
	"identra.org/internal/ids"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct{ db *sql.DB }

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions(id, principal_kind, principal_id, token_hash, user_agent, ip, expires_at)
		values($1,$2,$3,$4,$5,$6,$7)`,
		sess.ID, string(sess.Kind), sess.PrincipalID, sess.TokenHash,
		sess.UserAgent, sess.IP, sess.ExpiresAt,
	)
	return err
}

func (s *PGStore) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, principal_kind, principal_id, token_hash, user_agent, ip, expires_at, revoked_at, created_at
		from sessions where token_hash=$1`, hash)
	var (
		sess Session
		kind string
	)
	err := row.Scan(&sess.ID, &kind, &sess.PrincipalID, &sess.TokenHash,
		&sess.UserAgent, &sess.IP, &sess.ExpiresAt, &sess.RevokedAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Kind = identity.Kind(kind)
	return &sess, nil
}

func (s *PGStore) RevokeByTokenHash(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set revoked_at=now() where token_hash=$1 and revoked_at is null`, hash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PGStore) RevokeByPrincipal(ctx context.Context, kind identity.Kind, principalID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update sessions set revoked_at=now()
		where principal_kind=$1 and principal_id=$2 and revoked_at is null`,
		string(kind), principalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PGStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
