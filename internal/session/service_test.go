package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"identra.org/internal/identity"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	svc, err := NewService(NewPGStore(db))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, mock
}

func sessionRows(hash string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "principal_kind", "principal_id", "token_hash", "user_agent", "ip",
		"expires_at", "revoked_at", "created_at",
	}).AddRow("sess-1", "USER", "acc-1", hash, "ua", "1.2.3.4", expiresAt, nil, time.Now())
}

func TestPersistHashesToken(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("insert into sessions").
		WithArgs(sqlmock.AnyArg(), "USER", "acc-1", HashToken("raw-token"), "ua", "1.2.3.4", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sess, err := svc.Persist(context.Background(), identity.KindUser, "acc-1", "raw-token", "ua", "1.2.3.4", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if sess.TokenHash == "raw-token" || sess.TokenHash == "" {
		t.Fatalf("token stored unhashed: %q", sess.TokenHash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotatePersistsReplacementBeforeRevoking(t *testing.T) {
	svc, mock := newTestService(t)

	oldHash := HashToken("old-token")
	// Expectations are ordered: lookup, insert of the replacement, then the
	// revocation of the old session.
	mock.ExpectQuery("select id, principal_kind, principal_id, token_hash").
		WithArgs(oldHash).
		WillReturnRows(sessionRows(oldHash, time.Now().Add(time.Hour)))
	mock.ExpectExec("insert into sessions").
		WithArgs(sqlmock.AnyArg(), "USER", "acc-1", HashToken("new-token"), "ua", "1.2.3.4", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("update sessions set revoked_at=now\\(\\) where token_hash").
		WithArgs(oldHash).
		WillReturnResult(sqlmock.NewResult(0, 1))

	next, err := svc.Rotate(context.Background(), "old-token", "new-token", "ua", "1.2.3.4", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if next.TokenHash != HashToken("new-token") {
		t.Fatalf("unexpected replacement hash")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateUnknownToken(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("select id, principal_kind, principal_id, token_hash").
		WithArgs(HashToken("ghost")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "principal_kind", "principal_id", "token_hash", "user_agent", "ip",
			"expires_at", "revoked_at", "created_at",
		}))

	if _, err := svc.Rotate(context.Background(), "ghost", "new", "", "", time.Now().Add(time.Hour)); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestValidateExpiredSession(t *testing.T) {
	svc, mock := newTestService(t)

	hash := HashToken("stale")
	mock.ExpectQuery("select id, principal_kind, principal_id, token_hash").
		WithArgs(hash).
		WillReturnRows(sessionRows(hash, time.Now().Add(-time.Minute)))

	if _, err := svc.Validate(context.Background(), "stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for expired session, got %v", err)
	}
}

func TestRevokeByPrincipal(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("update sessions set revoked_at=now\\(\\)").
		WithArgs("USER", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := svc.RevokeByPrincipal(context.Background(), identity.KindUser, "acc-1")
	if err != nil {
		t.Fatalf("RevokeByPrincipal: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked sessions, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
