package httpapi

import (
	"errors"
	"net/http"

	"identra.org/internal/audit"
	"identra.org/internal/entitlement"
	"identra.org/internal/identity"
	"identra.org/internal/session"
)

type registerRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type accountResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	Name        string `json:"name,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Provider    string `json:"provider"`
}

func toAccountResponse(account *identity.Account) accountResponse {
	return accountResponse{
		ID:          account.ID,
		Email:       account.Email,
		Username:    account.Username,
		Name:        account.Name,
		CountryCode: account.CountryCode,
		Provider:    string(account.Provider),
	}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.directory.Register(r.Context(), req.Email, req.Username, req.Password, req.Name, req.CountryCode)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "email or username already taken")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.account.registered", map[string]any{
		"account_id": account.ID,
	})
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.directory.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Disabled accounts and bad credentials fail identically.
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	}
	pair, err := a.issueUserTokens(r, account)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"account_id": account.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"account": toAccountResponse(account),
		"tokens":  pair,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := a.codec.Verify(req.RefreshToken)
	if err != nil || !claims.Type.Refresh() {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	account, err := a.directory.Account(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	snapshot, err := a.services.Snapshot(r.Context(), account.ID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	access, accessExp, err := a.codec.IssueUserAccess(account.ID, account.Email, account.AccountMode, account.CountryCode, snapshot)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	refresh, refreshExp, err := a.codec.IssueUserRefresh(account.ID, account.Email)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token issuance failed")
		return
	}
	if _, err := a.sessions.Rotate(r.Context(), req.RefreshToken, refresh, r.UserAgent(), clientIP(r), refreshExp); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.token.rotated", map[string]any{
		"account_id": account.ID,
	})
	writeJSON(w, http.StatusOK, entitlement.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.sessions.RevokeByToken(r.Context(), req.RefreshToken); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	err := a.directory.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		return
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.password.changed", map[string]any{
		"account_id": user.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_changed"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	resp := map[string]any{
		"kind":  string(principal.Kind()),
		"id":    principal.SubjectID(),
		"email": principal.DisplayEmail(),
	}
	switch p := principal.(type) {
	case *identity.UserPrincipal:
		resp["name"] = p.Name
		resp["countryCode"] = p.CountryCode
		resp["services"] = p.Services
	case *identity.AdminPrincipal:
		resp["name"] = p.Name
		resp["scope"] = p.Scope
		resp["permissions"] = p.Permissions
	case *identity.OperatorPrincipal:
		resp["name"] = p.Name
		resp["serviceSlug"] = p.ServiceSlug
		resp["permissions"] = p.Permissions
	}
	writeJSON(w, http.StatusOK, resp)
}

// issueUserTokens mints an access/refresh pair from the account's current
// entitlement snapshot and persists the refresh session.
func (a *API) issueUserTokens(r *http.Request, account *identity.Account) (*entitlement.TokenPair, error) {
	ctx := r.Context()
	snapshot, err := a.services.Snapshot(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := a.codec.IssueUserAccess(account.ID, account.Email, account.AccountMode, account.CountryCode, snapshot)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := a.codec.IssueUserRefresh(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	if _, err := a.sessions.Persist(ctx, identity.KindUser, account.ID, refresh, r.UserAgent(), clientIP(r), refreshExp); err != nil {
		return nil, err
	}
	return &entitlement.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
