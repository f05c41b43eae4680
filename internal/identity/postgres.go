package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"identra.org/internal/ids"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PGAccountStore implements AccountStore on PostgreSQL.
type PGAccountStore struct{ db *sql.DB }

var _ AccountStore = (*PGAccountStore)(nil)

func NewPGAccountStore(db *sql.DB) *PGAccountStore { return &PGAccountStore{db: db} }

const accountColumns = `id, email, username, password_hash, name, avatar_url, account_mode, country_code, status, provider, last_login_at, created_at, updated_at`

func (s *PGAccountStore) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into accounts(id, email, username, password_hash, name, avatar_url, account_mode, country_code, status, provider)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Name, a.AvatarURL,
		a.AccountMode, a.CountryCode, a.Status, string(a.Provider),
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGAccountStore) Find(ctx context.Context, id string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id=$1`, id)
	return scanAccount(row)
}

func (s *PGAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where email=$1`, email)
	return scanAccount(row)
}

func (s *PGAccountStore) Update(ctx context.Context, a *Account) error {
	_, err := s.db.ExecContext(ctx, `
		update accounts
		set email=$2, username=$3, password_hash=$4, name=$5, avatar_url=$6,
		    account_mode=$7, country_code=$8, status=$9, provider=$10,
		    last_login_at=$11, updated_at=now()
		where id=$1`,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Name, a.AvatarURL,
		a.AccountMode, a.CountryCode, a.Status, string(a.Provider), a.LastLoginAt,
	)
	return err
}

func (s *PGAccountStore) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`update accounts set status=$2, updated_at=now() where id=$1`, id, status)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*Account, error) {
	var (
		a        Account
		provider string
	)
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Name,
		&a.AvatarURL, &a.AccountMode, &a.CountryCode, &a.Status, &provider,
		&a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Provider = Provider(provider)
	return &a, nil
}

// PGAdminStore implements AdminStore on PostgreSQL.
type PGAdminStore struct{ db *sql.DB }

var _ AdminStore = (*PGAdminStore)(nil)

func NewPGAdminStore(db *sql.DB) *PGAdminStore { return &PGAdminStore{db: db} }

func (s *PGAdminStore) Find(ctx context.Context, id string) (*Admin, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, email, name, scope, tenant_id, role_id, role_name, level,
		       permissions, services, active, created_at, updated_at
		from admins where id=$1`, id)
	var (
		a           Admin
		permissions []byte
		services    []byte
	)
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Scope, &a.TenantID, &a.RoleID,
		&a.RoleName, &a.Level, &permissions, &services, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(permissions, &a.Permissions)
	_ = json.Unmarshal(services, &a.Services)
	return &a, nil
}

func (s *PGAdminStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update admins set active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PGOperatorStore implements OperatorStore on PostgreSQL.
type PGOperatorStore struct{ db *sql.DB }

var _ OperatorStore = (*PGOperatorStore)(nil)

func NewPGOperatorStore(db *sql.DB) *PGOperatorStore { return &PGOperatorStore{db: db} }

func (s *PGOperatorStore) Find(ctx context.Context, id string) (*Operator, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, admin_id, service_id, service_slug, country_code, email, name,
		       permissions, active, created_at, updated_at
		from operators where id=$1`, id)
	var (
		o           Operator
		permissions []byte
	)
	err := row.Scan(&o.ID, &o.AdminID, &o.ServiceID, &o.ServiceSlug, &o.CountryCode,
		&o.Email, &o.Name, &permissions, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(permissions, &o.Permissions)
	return &o, nil
}

func (s *PGOperatorStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update operators set active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PGProfileStore reads display names from the profile table.
type PGProfileStore struct{ db *sql.DB }

var _ ProfileStore = (*PGProfileStore)(nil)

func NewPGProfileStore(db *sql.DB) *PGProfileStore { return &PGProfileStore{db: db} }

func (s *PGProfileStore) DisplayName(ctx context.Context, accountID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`select display_name from profiles where account_id=$1`, accountID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}
