package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"identra.org/internal/identity"
)

const kakaoProfileURL = "https://kapi.kakao.com/v2/user/me"

var kakaoEndpoint = oauth2.Endpoint{
	AuthURL:  "https://kauth.kakao.com/oauth/authorize",
	TokenURL: "https://kauth.kakao.com/oauth/token",
}

// KakaoProvider implements the Kakao sign-in flow. The profile is fetched
// from a secondary endpoint with the exchanged access token.
type KakaoProvider struct {
	conf       *oauth2.Config
	profileURL string
}

var _ Provider = (*KakaoProvider)(nil)

func NewKakaoProvider(clientID, clientSecret, redirectURL string) *KakaoProvider {
	return &KakaoProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"account_email", "profile_nickname", "profile_image"},
			Endpoint:     kakaoEndpoint,
		},
		profileURL: kakaoProfileURL,
	}
}

func (p *KakaoProvider) Name() identity.Provider { return identity.ProviderKakao }

func (p *KakaoProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *KakaoProvider) FetchProfile(ctx context.Context, hs Handshake) (*Profile, error) {
	tok, err := p.conf.Exchange(ctx, hs.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: kakao: %v", ErrExchangeFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: kakao: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: kakao: status %d", ErrProfileFetch, resp.StatusCode)
	}

	var payload struct {
		ID      int64 `json:"id"`
		Account struct {
			Email   string `json:"email"`
			Profile struct {
				Nickname        string `json:"nickname"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"profile"`
		} `json:"kakao_account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: kakao: %v", ErrProfileFetch, err)
	}
	if payload.ID == 0 {
		return nil, &MissingAttributeError{Provider: "kakao", Attribute: "id"}
	}
	return &Profile{
		Provider:       identity.ProviderKakao,
		ProviderUserID: strconv.FormatInt(payload.ID, 10),
		Email:          payload.Account.Email,
		Name:           payload.Account.Profile.Nickname,
		AvatarURL:      payload.Account.Profile.ProfileImageURL,
	}, nil
}
