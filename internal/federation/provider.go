// Package federation brokers OAuth sign-in across external identity
// providers and maps provider profiles onto local accounts.
package federation

import (
	"context"

	"identra.org/internal/identity"
)

// Profile is the normalized identity a provider hands back after a
// completed handshake.
type Profile struct {
	Provider       identity.Provider
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
}

// Handshake carries the callback parameters of an authorization-code flow.
// RawUser is only set by providers that deliver profile data directly in
// the callback instead of exposing a profile endpoint.
type Handshake struct {
	Code    string
	State   string
	RawUser string
}

// Provider is one configured OAuth identity provider.
type Provider interface {
	// Name returns the provider slug.
	Name() identity.Provider

	// AuthCodeURL builds the URL the browser is redirected to.
	AuthCodeURL(state string) string

	// FetchProfile completes the handshake and returns the normalized
	// profile.
	FetchProfile(ctx context.Context, hs Handshake) (*Profile, error)
}
