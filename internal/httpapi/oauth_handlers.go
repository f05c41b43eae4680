package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/federation"
	"identra.org/internal/identity"
	"identra.org/internal/ids"
	"identra.org/internal/obs"
)

const stateCookie = "oauth_state"

// handleOAuth dispatches /v1/oauth/{provider}/{authorize|callback}.
func (a *API) handleOAuth(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/oauth/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	provider := identity.Provider(strings.ToUpper(parts[0]))

	switch parts[1] {
	case "authorize":
		a.oauthAuthorize(w, r, provider)
	case "callback":
		a.oauthCallback(w, r, provider)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) oauthAuthorize(w http.ResponseWriter, r *http.Request, name identity.Provider) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	provider, err := a.registry.Provider(r.Context(), name)
	if err != nil {
		if errors.Is(err, federation.ErrUnknownProvider) {
			writeError(w, r, http.StatusNotFound, "unknown provider")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	state := ids.New()
	sameSite := http.SameSiteLaxMode
	secure := r.TLS != nil
	if name == identity.ProviderApple {
		// Apple delivers the callback as a cross-site form POST; browsers
		// drop Lax cookies there, so the state cookie must be SameSite=None,
		// which in turn requires Secure.
		sameSite = http.SameSiteNoneMode
		secure = true
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/v1/oauth/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
}

func (a *API) oauthCallback(w http.ResponseWriter, r *http.Request, name identity.Provider) {
	// Apple posts the callback as a form; the rest arrive as GET.
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed callback")
		return
	}

	state := r.Form.Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		obs.CountOAuthLogin(string(name), "state_mismatch")
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	code := r.Form.Get("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	provider, err := a.registry.Provider(r.Context(), name)
	if err != nil {
		if errors.Is(err, federation.ErrUnknownProvider) {
			writeError(w, r, http.StatusNotFound, "unknown provider")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	profile, err := provider.FetchProfile(r.Context(), federation.Handshake{
		Code:    code,
		State:   state,
		RawUser: r.Form.Get("user"),
	})
	if err != nil {
		obs.CountOAuthLogin(string(name), "profile_failed")
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	account, created, err := a.broker.FindOrCreateAccount(r.Context(), profile)
	if err != nil {
		var missing *federation.MissingAttributeError
		if errors.As(err, &missing) {
			obs.CountOAuthLogin(string(name), "missing_attribute")
			writeError(w, r, http.StatusUnprocessableEntity, missing.Error())
			return
		}
		obs.CountOAuthLogin(string(name), "error")
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if account.Status != identity.StatusActive {
		obs.CountOAuthLogin(string(name), "disabled")
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	pair, err := a.issueUserTokens(r, account)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	obs.CountOAuthLogin(string(name), "ok")
	_ = audit.LogEvent(r.Context(), "auth.oauth.login", map[string]any{
		"provider":   string(name),
		"account_id": account.ID,
		"created":    created,
	})

	// Clear the state cookie.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/v1/oauth/",
		MaxAge: -1,
	})

	if a.frontendURL != "" {
		redirect, err := url.Parse(a.frontendURL)
		if err == nil {
			redirect.Path = strings.TrimRight(redirect.Path, "/") + "/oauth/callback"
			q := redirect.Query()
			q.Set("accessToken", pair.AccessToken)
			q.Set("refreshToken", pair.RefreshToken)
			redirect.RawQuery = q.Encode()
			http.Redirect(w, r, redirect.String(), http.StatusFound)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": toAccountResponse(account),
		"tokens":  pair,
	})
}
