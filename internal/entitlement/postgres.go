package entitlement

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"identra.org/internal/ids"
	"identra.org/internal/token"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// PGStore implements Store on PostgreSQL.
type PGStore struct{ db *sql.DB }

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) FindServiceBySlug(ctx context.Context, slug string) (*Service, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, slug, name, enabled, created_at, updated_at
		from services where slug=$1`, slug)
	var svc Service
	err := row.Scan(&svc.ID, &svc.Slug, &svc.Name, &svc.Enabled, &svc.CreatedAt, &svc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (s *PGStore) UpsertService(ctx context.Context, svc *Service) error {
	if svc.ID == "" {
		svc.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into services(id, slug, name, enabled)
		values($1,$2,$3,$4)
		on conflict (slug) do update
		set name=excluded.name, enabled=excluded.enabled, updated_at=now()`,
		svc.ID, svc.Slug, svc.Name, svc.Enabled)
	return err
}

func (s *PGStore) Requirements(ctx context.Context, serviceID, countryCode string) ([]ConsentRequirement, error) {
	rows, err := s.db.QueryContext(ctx, `
		select service_id, country_code, consent_type, required
		from consent_requirements
		where service_id=$1 and country_code=$2`, serviceID, countryCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []ConsentRequirement
	for rows.Next() {
		var req ConsentRequirement
		if err := rows.Scan(&req.ServiceID, &req.CountryCode, &req.Type, &req.Required); err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

func (s *PGStore) Join(ctx context.Context, ent *Entitlement, consents []Consent) error {
	if ent.ID == "" {
		ent.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		insert into entitlements(id, account_id, service_id, country_code, status)
		values($1,$2,$3,$4,$5)`,
		ent.ID, ent.AccountID, ent.ServiceID, ent.CountryCode, StatusActive)
	if isUniqueViolation(err) {
		return ErrAlreadyJoined
	}
	if err != nil {
		return err
	}

	for i := range consents {
		c := &consents[i]
		if c.ID == "" {
			c.ID = ids.New()
		}
		_, err = tx.ExecContext(ctx, `
			insert into consents(id, entitlement_id, consent_type, agreed, ip, user_agent, agreed_at)
			values($1,$2,$3,$4,$5,$6, case when $4 then now() end)`,
			c.ID, ent.ID, c.Type, c.Agreed, c.IP, c.UserAgent)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PGStore) ActiveByService(ctx context.Context, accountID, serviceID string) ([]*Entitlement, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, account_id, service_id, country_code, status, joined_at, withdrawn_at
		from entitlements
		where account_id=$1 and service_id=$2 and status=$3`,
		accountID, serviceID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ents []*Entitlement
	for rows.Next() {
		var ent Entitlement
		if err := rows.Scan(&ent.ID, &ent.AccountID, &ent.ServiceID, &ent.CountryCode,
			&ent.Status, &ent.JoinedAt, &ent.WithdrawnAt); err != nil {
			return nil, err
		}
		ents = append(ents, &ent)
	}
	return ents, rows.Err()
}

func (s *PGStore) FindConsent(ctx context.Context, accountID, consentID string) (*Consent, *Entitlement, error) {
	row := s.db.QueryRowContext(ctx, `
		select c.id, c.entitlement_id, c.consent_type, c.agreed, c.ip, c.user_agent, c.agreed_at, c.withdrawn_at,
		       e.id, e.account_id, e.service_id, e.country_code, e.status, e.joined_at, e.withdrawn_at
		from consents c
		join entitlements e on e.id = c.entitlement_id
		where c.id=$1 and e.account_id=$2`, consentID, accountID)
	var (
		c   Consent
		ent Entitlement
	)
	err := row.Scan(&c.ID, &c.EntitlementID, &c.Type, &c.Agreed, &c.IP, &c.UserAgent,
		&c.AgreedAt, &c.WithdrawnAt,
		&ent.ID, &ent.AccountID, &ent.ServiceID, &ent.CountryCode, &ent.Status,
		&ent.JoinedAt, &ent.WithdrawnAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrConsentNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return &c, &ent, nil
}

func (s *PGStore) SetConsent(ctx context.Context, consentID string, agreed bool, actor Actor) error {
	res, err := s.db.ExecContext(ctx, `
		update consents
		set agreed=$2, ip=$3, user_agent=$4,
		    agreed_at   = case when $2 then now() else agreed_at end,
		    withdrawn_at = case when $2 then null else now() end
		where id=$1`,
		consentID, agreed, actor.IP, actor.UserAgent)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConsentNotFound
	}
	return nil
}

func (s *PGStore) Withdraw(ctx context.Context, accountID, serviceID, countryCode string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		update entitlements set status=$3, withdrawn_at=now()
		where account_id=$1 and service_id=$2 and status=$4`
	args := []any{accountID, serviceID, StatusWithdrawn, StatusActive}
	if countryCode != "" {
		query += ` and country_code=$5`
		args = append(args, countryCode)
	}
	query += ` returning id`

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	var entIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		entIDs = append(entIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range entIDs {
		if _, err := tx.ExecContext(ctx, `
			update consents set agreed=false, withdrawn_at=now()
			where entitlement_id=$1 and withdrawn_at is null`, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int64(len(entIDs)), nil
}

func (s *PGStore) Snapshot(ctx context.Context, accountID string) (map[string]token.ServiceStanding, error) {
	rows, err := s.db.QueryContext(ctx, `
		select s.slug, e.country_code
		from entitlements e
		join services s on s.id = e.service_id
		where e.account_id=$1 and e.status=$2
		order by s.slug, e.country_code`, accountID, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshot := make(map[string]token.ServiceStanding)
	for rows.Next() {
		var slug, country string
		if err := rows.Scan(&slug, &country); err != nil {
			return nil, err
		}
		standing := snapshot[slug]
		standing.Status = StatusActive
		standing.Countries = append(standing.Countries, country)
		snapshot[slug] = standing
	}
	return snapshot, rows.Err()
}
