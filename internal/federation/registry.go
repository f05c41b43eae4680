package federation

import (
	"context"
	"errors"
	"fmt"

	"identra.org/internal/identity"
)

// Registry builds provider adapters from stored configuration on demand,
// so an operator enabling a provider or rotating its secret takes effect
// without a restart.
type Registry struct {
	configs ConfigStore
	box     *SecretBox
}

// NewRegistry constructs a Registry.
func NewRegistry(configs ConfigStore, box *SecretBox) (*Registry, error) {
	if configs == nil || box == nil {
		return nil, errors.New("federation: config store and secret box are required")
	}
	return &Registry{configs: configs, box: box}, nil
}

// Provider returns the adapter for an enabled provider. Unknown slugs and
// disabled providers fail identically.
func (r *Registry) Provider(ctx context.Context, name identity.Provider) (Provider, error) {
	if name == identity.ProviderLocal || !name.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	cfg, err := r.configs.Get(ctx, name)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		return nil, err
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	secret, err := r.box.Open(cfg.SealedSecret)
	if err != nil {
		return nil, fmt.Errorf("unseal %s client secret: %w", name, err)
	}

	switch name {
	case identity.ProviderGoogle:
		return NewGoogleProvider(cfg.ClientID, secret, cfg.RedirectURL), nil
	case identity.ProviderKakao:
		return NewKakaoProvider(cfg.ClientID, secret, cfg.RedirectURL), nil
	case identity.ProviderNaver:
		return NewNaverProvider(cfg.ClientID, secret, cfg.RedirectURL), nil
	case identity.ProviderApple:
		return NewAppleProvider(cfg.ClientID, secret, cfg.RedirectURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
