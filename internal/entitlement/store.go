package entitlement

import (
	"context"

	"identra.org/internal/token"
)

// Store persists services, entitlements and consents. Multi-row mutations
// run in a single transaction.
type Store interface {
	FindServiceBySlug(ctx context.Context, slug string) (*Service, error)
	UpsertService(ctx context.Context, svc *Service) error

	// Requirements lists the consent types a service demands for a country.
	Requirements(ctx context.Context, serviceID, countryCode string) ([]ConsentRequirement, error)

	// Join inserts the entitlement and its consent rows atomically. Returns
	// ErrAlreadyJoined when the entitlement key is already taken.
	Join(ctx context.Context, ent *Entitlement, consents []Consent) error

	// ActiveByService lists an account's ACTIVE entitlements for a service
	// across all countries.
	ActiveByService(ctx context.Context, accountID, serviceID string) ([]*Entitlement, error)

	// FindConsent loads a consent owned by the account together with its
	// entitlement. Returns ErrConsentNotFound on a miss.
	FindConsent(ctx context.Context, accountID, consentID string) (*Consent, *Entitlement, error)

	// SetConsent toggles a consent and stamps the acting origin.
	SetConsent(ctx context.Context, consentID string, agreed bool, actor Actor) error

	// Withdraw soft-closes the account's entitlements for a service,
	// scoped to one country when countryCode is non-empty, together with
	// their consents. Returns the number of entitlements withdrawn.
	Withdraw(ctx context.Context, accountID, serviceID, countryCode string) (int64, error)

	// Snapshot builds the account's active-entitlement view keyed by
	// service slug.
	Snapshot(ctx context.Context, accountID string) (map[string]token.ServiceStanding, error)
}
