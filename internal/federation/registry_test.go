package federation

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"identra.org/internal/identity"
)

type fakeConfigs struct {
	byProvider map[identity.Provider]*ProviderConfig
}

func (f *fakeConfigs) Get(ctx context.Context, provider identity.Provider) (*ProviderConfig, error) {
	cfg, ok := f.byProvider[provider]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeConfigs) List(ctx context.Context) ([]*ProviderConfig, error) {
	out := make([]*ProviderConfig, 0, len(f.byProvider))
	for _, cfg := range f.byProvider {
		out = append(out, cfg)
	}
	return out, nil
}

func (f *fakeConfigs) Upsert(ctx context.Context, cfg *ProviderConfig) error {
	f.byProvider[cfg.Provider] = cfg
	return nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeConfigs, *SecretBox) {
	t.Helper()
	box, err := NewSecretBox(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("NewSecretBox: %v", err)
	}
	configs := &fakeConfigs{byProvider: map[identity.Provider]*ProviderConfig{}}
	reg, err := NewRegistry(configs, box)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg, configs, box
}

func TestRegistryBuildsEnabledProvider(t *testing.T) {
	reg, configs, box := newTestRegistry(t)

	sealed, err := box.Seal("google-secret")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	configs.byProvider[identity.ProviderGoogle] = &ProviderConfig{
		Provider:     identity.ProviderGoogle,
		ClientID:     "google-client",
		SealedSecret: sealed,
		RedirectURL:  "https://identra.org/v1/oauth/GOOGLE/callback",
		Enabled:      true,
	}

	p, err := reg.Provider(context.Background(), identity.ProviderGoogle)
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Name() != identity.ProviderGoogle {
		t.Fatalf("unexpected adapter: %s", p.Name())
	}
	if url := p.AuthCodeURL("state-1"); url == "" {
		t.Fatalf("empty authorize URL")
	}
}

func TestRegistryDisabledAndUnknownFailIdentically(t *testing.T) {
	reg, configs, box := newTestRegistry(t)

	sealed, _ := box.Seal("kakao-secret")
	configs.byProvider[identity.ProviderKakao] = &ProviderConfig{
		Provider:     identity.ProviderKakao,
		ClientID:     "kakao-client",
		SealedSecret: sealed,
		Enabled:      false,
	}

	_, disabledErr := reg.Provider(context.Background(), identity.ProviderKakao)
	_, unknownErr := reg.Provider(context.Background(), identity.ProviderNaver)
	if !errors.Is(disabledErr, ErrUnknownProvider) || !errors.Is(unknownErr, ErrUnknownProvider) {
		t.Fatalf("disabled=%v unknown=%v, both must be ErrUnknownProvider", disabledErr, unknownErr)
	}
}

func TestRegistryRejectsLocal(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	if _, err := reg.Provider(context.Background(), identity.ProviderLocal); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider for LOCAL, got %v", err)
	}
	if _, err := reg.Provider(context.Background(), identity.Provider("GITHUB")); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider for invalid slug, got %v", err)
	}
}

func TestRegistryUnsealFailure(t *testing.T) {
	reg, configs, _ := newTestRegistry(t)

	otherBox, _ := NewSecretBox(bytes.Repeat([]byte{0x08}, 32))
	sealed, _ := otherBox.Seal("naver-secret")
	configs.byProvider[identity.ProviderNaver] = &ProviderConfig{
		Provider:     identity.ProviderNaver,
		SealedSecret: sealed,
		Enabled:      true,
	}

	if _, err := reg.Provider(context.Background(), identity.ProviderNaver); err == nil {
		t.Fatalf("expected error for secret sealed under a different key")
	}
}
