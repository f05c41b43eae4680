package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"identra.org/internal/identity"
)

const naverProfileURL = "https://openapi.naver.com/v1/nid/me"

var naverEndpoint = oauth2.Endpoint{
	AuthURL:  "https://nid.naver.com/oauth2.0/authorize",
	TokenURL: "https://nid.naver.com/oauth2.0/token",
}

// NaverProvider implements the Naver sign-in flow. The profile endpoint
// wraps its payload in a resultcode envelope.
type NaverProvider struct {
	conf       *oauth2.Config
	profileURL string
}

var _ Provider = (*NaverProvider)(nil)

func NewNaverProvider(clientID, clientSecret, redirectURL string) *NaverProvider {
	return &NaverProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     naverEndpoint,
		},
		profileURL: naverProfileURL,
	}
}

func (p *NaverProvider) Name() identity.Provider { return identity.ProviderNaver }

func (p *NaverProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *NaverProvider) FetchProfile(ctx context.Context, hs Handshake) (*Profile, error) {
	tok, err := p.conf.Exchange(ctx, hs.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: naver: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: naver: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: naver: status %d", ErrProfileFetch, resp.StatusCode)
	}

	var payload struct {
		ResultCode string `json:"resultcode"`
		Message    string `json:"message"`
		Response   struct {
			ID           string `json:"id"`
			Email        string `json:"email"`
			Name         string `json:"name"`
			ProfileImage string `json:"profile_image"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: naver: %v", ErrProfileFetch, err)
	}
	if payload.ResultCode != "00" {
		return nil, fmt.Errorf("%w: naver: resultcode %s (%s)", ErrProfileFetch, payload.ResultCode, payload.Message)
	}
	if payload.Response.ID == "" {
		return nil, &MissingAttributeError{Provider: "naver", Attribute: "id"}
	}
	return &Profile{
		Provider:       identity.ProviderNaver,
		ProviderUserID: payload.Response.ID,
		Email:          payload.Response.Email,
		Name:           payload.Response.Name,
		AvatarURL:      payload.Response.ProfileImage,
	}, nil
}
