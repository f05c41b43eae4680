package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"identra.org/internal/identity"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider implements the Google sign-in flow.
type GoogleProvider struct {
	conf        *oauth2.Config
	userinfoURL string
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider constructs a Google provider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userinfoURL: googleUserinfoURL,
	}
}

func (p *GoogleProvider) Name() identity.Provider { return identity.ProviderGoogle }

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, hs Handshake) (*Profile, error) {
	tok, err := p.conf.Exchange(ctx, hs.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google: status %d", ErrProfileFetch, resp.StatusCode)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: google: %v", ErrProfileFetch, err)
	}
	if payload.ID == "" {
		return nil, &MissingAttributeError{Provider: "google", Attribute: "id"}
	}
	return &Profile{
		Provider:       identity.ProviderGoogle,
		ProviderUserID: payload.ID,
		Email:          payload.Email,
		Name:           payload.Name,
		AvatarURL:      payload.Picture,
	}, nil
}
