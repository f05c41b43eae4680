package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"identra.org/internal/identity"
)

var appleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://appleid.apple.com/auth/authorize",
	TokenURL: "https://appleid.apple.com/auth/token",
}

// AppleProvider implements Sign in with Apple. Apple has no profile
// endpoint: identity comes from the id_token in the exchange response, and
// the display name arrives only once, in the user payload of the first
// consent callback. Apple never supplies an avatar.
type AppleProvider struct {
	conf *oauth2.Config
}

var _ Provider = (*AppleProvider)(nil)

// NewAppleProvider constructs an Apple provider. clientSecret is the
// pre-signed JWT Apple requires in place of a static secret.
func NewAppleProvider(clientID, clientSecret, redirectURL string) *AppleProvider {
	return &AppleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"name", "email"},
			Endpoint:     appleEndpoint,
		},
	}
}

func (p *AppleProvider) Name() identity.Provider { return identity.ProviderApple }

func (p *AppleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "form_post"))
}

func (p *AppleProvider) FetchProfile(ctx context.Context, hs Handshake) (*Profile, error) {
	tok, err := p.conf.Exchange(ctx, hs.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: apple: %v", ErrExchangeFailed, err)
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, &MissingAttributeError{Provider: "apple", Attribute: "id_token"}
	}

	// The id_token was just received from Apple over the token channel, so
	// its signature is not re-verified here.
	var claims struct {
		jwt.RegisteredClaims
		Email string `json:"email"`
	}
	if _, _, err := jwt.NewParser().ParseUnverified(rawIDToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: apple: %v", ErrProfileFetch, err)
	}
	if claims.Subject == "" {
		return nil, &MissingAttributeError{Provider: "apple", Attribute: "sub"}
	}

	return &Profile{
		Provider:       identity.ProviderApple,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		Name:           appleUserName(hs.RawUser),
	}, nil
}

// appleUserName extracts the display name from the first-consent user
// payload; subsequent callbacks omit it.
func appleUserName(rawUser string) string {
	if rawUser == "" {
		return ""
	}
	var payload struct {
		Name struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"name"`
	}
	if err := json.Unmarshal([]byte(rawUser), &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Name.FirstName + " " + payload.Name.LastName)
}
