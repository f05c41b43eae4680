package federation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"identra.org/internal/identity"
	"identra.org/internal/ids"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PGConfigStore implements ConfigStore on PostgreSQL.
type PGConfigStore struct{ db *sql.DB }

var _ ConfigStore = (*PGConfigStore)(nil)

func NewPGConfigStore(db *sql.DB) *PGConfigStore { return &PGConfigStore{db: db} }

func (s *PGConfigStore) Get(ctx context.Context, provider identity.Provider) (*ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		select provider, client_id, sealed_secret, redirect_url, enabled, updated_at
		from oauth_provider_configs where provider=$1`, string(provider))
	return scanProviderConfig(row)
}

func (s *PGConfigStore) List(ctx context.Context) ([]*ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx, `
		select provider, client_id, sealed_secret, redirect_url, enabled, updated_at
		from oauth_provider_configs order by provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*ProviderConfig
	for rows.Next() {
		var (
			cfg      ProviderConfig
			provider string
		)
		if err := rows.Scan(&provider, &cfg.ClientID, &cfg.SealedSecret,
			&cfg.RedirectURL, &cfg.Enabled, &cfg.UpdatedAt); err != nil {
			return nil, err
		}
		cfg.Provider = identity.Provider(provider)
		configs = append(configs, &cfg)
	}
	return configs, rows.Err()
}

func (s *PGConfigStore) Upsert(ctx context.Context, cfg *ProviderConfig) error {
	_, err := s.db.ExecContext(ctx, `
		insert into oauth_provider_configs(provider, client_id, sealed_secret, redirect_url, enabled)
		values($1,$2,$3,$4,$5)
		on conflict (provider) do update
		set client_id=excluded.client_id, sealed_secret=excluded.sealed_secret,
		    redirect_url=excluded.redirect_url, enabled=excluded.enabled, updated_at=now()`,
		string(cfg.Provider), cfg.ClientID, cfg.SealedSecret, cfg.RedirectURL, cfg.Enabled)
	return err
}

func scanProviderConfig(row *sql.Row) (*ProviderConfig, error) {
	var (
		cfg      ProviderConfig
		provider string
	)
	err := row.Scan(&provider, &cfg.ClientID, &cfg.SealedSecret,
		&cfg.RedirectURL, &cfg.Enabled, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cfg.Provider = identity.Provider(provider)
	return &cfg, nil
}

// PGLinkStore implements LinkStore on PostgreSQL.
type PGLinkStore struct{ db *sql.DB }

var _ LinkStore = (*PGLinkStore)(nil)

func NewPGLinkStore(db *sql.DB) *PGLinkStore { return &PGLinkStore{db: db} }

func (s *PGLinkStore) FindAccountID(ctx context.Context, provider identity.Provider, providerUserID string) (string, error) {
	var accountID string
	err := s.db.QueryRowContext(ctx, `
		select account_id from identity_links
		where provider=$1 and provider_user_id=$2`,
		string(provider), providerUserID).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", identity.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

func (s *PGLinkStore) CreateWithAccount(ctx context.Context, account *identity.Account, provider identity.Provider, providerUserID string) error {
	if account.ID == "" {
		account.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		insert into accounts(id, email, username, password_hash, name, avatar_url, account_mode, country_code, status, provider)
		values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		account.ID, account.Email, account.Username, account.PasswordHash,
		account.Name, account.AvatarURL, account.AccountMode, account.CountryCode,
		account.Status, string(account.Provider))
	if isUniqueViolation(err) {
		return identity.ErrAlreadyExists
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		insert into identity_links(id, provider, provider_user_id, account_id)
		values($1,$2,$3,$4)`,
		ids.New(), string(provider), providerUserID, account.ID)
	if isUniqueViolation(err) {
		return identity.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}
