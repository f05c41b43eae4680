package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"identra.org/internal/identity"
	"identra.org/internal/ids"
	"identra.org/internal/obs"
	"identra.org/internal/session"
	"identra.org/internal/token"
)

// Manager executes entitlement transactions. Every successful mutation
// re-issues the account's token pair from a fresh snapshot, so a client
// never holds a token describing pre-mutation state.
type Manager struct {
	store    Store
	cache    Cache
	accounts identity.AccountStore
	codec    *token.Codec
	sessions *session.Service
}

// NewManager constructs a Manager.
func NewManager(store Store, cache Cache, accounts identity.AccountStore, codec *token.Codec, sessions *session.Service) (*Manager, error) {
	if store == nil || cache == nil || accounts == nil || codec == nil || sessions == nil {
		return nil, errors.New("entitlement: store, cache, account store, codec and sessions are required")
	}
	return &Manager{
		store:    store,
		cache:    cache,
		accounts: accounts,
		codec:    codec,
		sessions: sessions,
	}, nil
}

// JoinService enrolls an account into a service for one country. The
// entitlement and consent rows are written as one atomic unit.
func (m *Manager) JoinService(ctx context.Context, accountID, serviceSlug, countryCode string, consents []ConsentInput, actor Actor) (*TokenPair, error) {
	svc, err := m.serviceBySlug(ctx, serviceSlug)
	if err != nil {
		return nil, err
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	if err := m.checkRequiredConsents(ctx, svc.ID, countryCode, consents); err != nil {
		return nil, err
	}

	ent := &Entitlement{
		ID:          ids.New(),
		AccountID:   accountID,
		ServiceID:   svc.ID,
		CountryCode: countryCode,
		Status:      StatusActive,
	}
	rows := make([]Consent, 0, len(consents))
	for _, in := range consents {
		rows = append(rows, Consent{
			EntitlementID: ent.ID,
			Type:          in.Type,
			Agreed:        in.Agreed,
			IP:            actor.IP,
			UserAgent:     actor.UserAgent,
		})
	}
	if err := m.store.Join(ctx, ent, rows); err != nil {
		return nil, err
	}
	obs.CountEntitlementMutation("join", "ok")
	return m.reissue(ctx, accountID)
}

// AddCountryConsent extends an already-joined service to another country.
func (m *Manager) AddCountryConsent(ctx context.Context, accountID, serviceSlug, countryCode string, consents []ConsentInput, actor Actor) (*TokenPair, error) {
	svc, err := m.serviceBySlug(ctx, serviceSlug)
	if err != nil {
		return nil, err
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	active, err := m.store.ActiveByService(ctx, accountID, svc.ID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, ErrServiceNotJoined
	}
	for _, ent := range active {
		if ent.CountryCode == countryCode {
			return nil, ErrAlreadyConsented
		}
	}

	if err := m.checkRequiredConsents(ctx, svc.ID, countryCode, consents); err != nil {
		return nil, err
	}

	ent := &Entitlement{
		ID:          ids.New(),
		AccountID:   accountID,
		ServiceID:   svc.ID,
		CountryCode: countryCode,
		Status:      StatusActive,
	}
	rows := make([]Consent, 0, len(consents))
	for _, in := range consents {
		rows = append(rows, Consent{
			EntitlementID: ent.ID,
			Type:          in.Type,
			Agreed:        in.Agreed,
			IP:            actor.IP,
			UserAgent:     actor.UserAgent,
		})
	}
	if err := m.store.Join(ctx, ent, rows); err != nil {
		if errors.Is(err, ErrAlreadyJoined) {
			// Concurrent add for the same country.
			return nil, ErrAlreadyConsented
		}
		return nil, err
	}
	obs.CountEntitlementMutation("add_country", "ok")
	return m.reissue(ctx, accountID)
}

// UpdateConsent toggles one consent. A consent the service requires cannot
// be withdrawn while its entitlement is still active.
func (m *Manager) UpdateConsent(ctx context.Context, accountID, consentID string, agreed bool, actor Actor) (*TokenPair, error) {
	consent, ent, err := m.store.FindConsent(ctx, accountID, consentID)
	if err != nil {
		return nil, err
	}
	if !agreed && ent.Status == StatusActive {
		required, err := m.isRequired(ctx, ent.ServiceID, ent.CountryCode, consent.Type)
		if err != nil {
			return nil, err
		}
		if required {
			return nil, ErrRequiredConsentWithdrawal
		}
	}
	if err := m.store.SetConsent(ctx, consentID, agreed, actor); err != nil {
		return nil, err
	}
	obs.CountEntitlementMutation("update_consent", "ok")
	return m.reissue(ctx, accountID)
}

// WithdrawService soft-closes entitlements for a service, in one country
// or in all of them when countryCode is empty.
func (m *Manager) WithdrawService(ctx context.Context, accountID, serviceSlug, countryCode string) (*TokenPair, error) {
	svc, err := m.serviceBySlug(ctx, serviceSlug)
	if err != nil {
		return nil, err
	}
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	withdrawn, err := m.store.Withdraw(ctx, accountID, svc.ID, countryCode)
	if err != nil {
		return nil, err
	}
	if withdrawn == 0 {
		return nil, ErrServiceNotJoined
	}
	obs.CountEntitlementMutation("withdraw", "ok")
	return m.reissue(ctx, accountID)
}

// InvalidateService drops a service from the lookup cache. Called by the
// configuration writer after an upsert.
func (m *Manager) InvalidateService(slug string) { m.cache.Invalidate(slug) }

func (m *Manager) serviceBySlug(ctx context.Context, slug string) (*Service, error) {
	slug = strings.TrimSpace(slug)
	if svc, ok := m.cache.Get(slug); ok {
		return svc, nil
	}
	svc, err := m.store.FindServiceBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !svc.Enabled {
		return nil, ErrServiceNotFound
	}
	m.cache.Set(slug, svc)
	return svc, nil
}

func (m *Manager) checkRequiredConsents(ctx context.Context, serviceID, countryCode string, consents []ConsentInput) error {
	reqs, err := m.store.Requirements(ctx, serviceID, countryCode)
	if err != nil {
		return err
	}
	agreed := make(map[string]bool, len(consents))
	for _, in := range consents {
		agreed[in.Type] = in.Agreed
	}
	var missing []string
	for _, req := range reqs {
		if req.Required && !agreed[req.Type] {
			missing = append(missing, req.Type)
		}
	}
	if len(missing) > 0 {
		return &MissingConsentError{Types: missing}
	}
	return nil
}

func (m *Manager) isRequired(ctx context.Context, serviceID, countryCode, consentType string) (bool, error) {
	reqs, err := m.store.Requirements(ctx, serviceID, countryCode)
	if err != nil {
		return false, err
	}
	for _, req := range reqs {
		if req.Type == consentType {
			return req.Required, nil
		}
	}
	return false, nil
}

// reissue recomputes the account's snapshot, mints a fresh token pair and
// persists the refresh session.
func (m *Manager) reissue(ctx context.Context, accountID string) (*TokenPair, error) {
	account, err := m.accounts.Find(ctx, accountID)
	if err != nil {
		return nil, err
	}
	snapshot, err := m.store.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := m.codec.IssueUserAccess(account.ID, account.Email, account.AccountMode, account.CountryCode, snapshot)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := m.codec.IssueUserRefresh(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	if _, err := m.sessions.Persist(ctx, identity.KindUser, account.ID, refresh, "", "", refreshExp); err != nil {
		return nil, fmt.Errorf("persist reissued refresh session: %w", err)
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
