package federation

import (
	"context"
	"time"

	"identra.org/internal/identity"
)

// ProviderConfig is the stored configuration of one OAuth provider. The
// client secret is kept sealed; it is decrypted only when an adapter is
// built.
type ProviderConfig struct {
	Provider     identity.Provider
	ClientID     string
	SealedSecret string
	RedirectURL  string
	Enabled      bool
	UpdatedAt    time.Time
}

// ConfigStore persists provider configurations.
type ConfigStore interface {
	Get(ctx context.Context, provider identity.Provider) (*ProviderConfig, error)
	List(ctx context.Context) ([]*ProviderConfig, error)
	Upsert(ctx context.Context, cfg *ProviderConfig) error
}

// LinkStore persists the mapping from provider identities to local
// accounts.
type LinkStore interface {
	// FindAccountID resolves a provider identity to its linked account.
	// Returns identity.ErrNotFound when no link exists.
	FindAccountID(ctx context.Context, provider identity.Provider, providerUserID string) (string, error)

	// CreateWithAccount inserts a new account and its provider link in one
	// transaction. Returns identity.ErrAlreadyExists when another request
	// linked the same provider identity first.
	CreateWithAccount(ctx context.Context, account *identity.Account, provider identity.Provider, providerUserID string) error
}
