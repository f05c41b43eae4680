package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/entitlement"
	"identra.org/internal/federation"
	"identra.org/internal/identity"
)

type providerConfigRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURL  string `json:"redirectUrl"`
	Enabled      bool   `json:"enabled"`
}

type providerConfigResponse struct {
	Provider     string `json:"provider"`
	ClientID     string `json:"clientId"`
	MaskedSecret string `json:"maskedSecret"`
	RedirectURL  string `json:"redirectUrl"`
	Enabled      bool   `json:"enabled"`
}

type serviceUpsertRequest struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// handlePrincipalScoped dispatches /v1/admin/principals/{kind}/{id}/deactivate.
func (a *API) handlePrincipalScoped(w http.ResponseWriter, r *http.Request) {
	if !guard(w, r, "principal:deactivate") {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/principals/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 3 || parts[2] != "deactivate" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	kind := identity.Kind(strings.ToUpper(parts[0]))
	id := parts[1]

	err := a.directory.Deactivate(r.Context(), kind, id)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "principal not found")
		return
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.principal.deactivated", map[string]any{
		"kind": string(kind),
		"id":   id,
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "deactivated"})
}

func (a *API) handleProvidersCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !guard(w, r, "provider:read") {
		return
	}
	configs, err := a.configs.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	items := make([]providerConfigResponse, 0, len(configs))
	for _, cfg := range configs {
		items = append(items, a.toProviderResponse(cfg))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleProviderResource dispatches /v1/admin/providers/{provider}.
func (a *API) handleProviderResource(w http.ResponseWriter, r *http.Request) {
	name := identity.Provider(strings.ToUpper(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/providers/"), "/")))
	if name == identity.ProviderLocal || !name.Valid() {
		writeError(w, r, http.StatusNotFound, "unknown provider")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !guard(w, r, "provider:read") {
			return
		}
		cfg, err := a.configs.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, identity.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "provider not configured")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, a.toProviderResponse(cfg))

	case http.MethodPut:
		if !guard(w, r, "provider:write") {
			return
		}
		var req providerConfigRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.ClientID == "" || req.ClientSecret == "" {
			writeError(w, r, http.StatusBadRequest, "clientId and clientSecret are required")
			return
		}
		sealed, err := a.box.Seal(req.ClientSecret)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		cfg := &federation.ProviderConfig{
			Provider:     name,
			ClientID:     req.ClientID,
			SealedSecret: sealed,
			RedirectURL:  req.RedirectURL,
			Enabled:      req.Enabled,
		}
		if err := a.configs.Upsert(r.Context(), cfg); err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		_ = audit.LogEvent(r.Context(), "admin.provider.updated", map[string]any{
			"provider": string(name),
			"enabled":  req.Enabled,
		})
		writeJSON(w, http.StatusOK, a.toProviderResponse(cfg))

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

// toProviderResponse renders a config with the secret masked. The sealed
// blob never leaves the server; only its trailing characters are shown.
func (a *API) toProviderResponse(cfg *federation.ProviderConfig) providerConfigResponse {
	masked := ""
	if secret, err := a.box.Open(cfg.SealedSecret); err == nil {
		masked = federation.MaskSecret(secret)
	}
	return providerConfigResponse{
		Provider:     string(cfg.Provider),
		ClientID:     cfg.ClientID,
		MaskedSecret: masked,
		RedirectURL:  cfg.RedirectURL,
		Enabled:      cfg.Enabled,
	}
}

// handleServiceResource dispatches PUT /v1/admin/services/{slug}.
func (a *API) handleServiceResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !guard(w, r, "service:write") {
		return
	}
	slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/services/"), "/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	var req serviceUpsertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	svc := &entitlement.Service{
		Slug:    slug,
		Name:    req.Name,
		Enabled: req.Enabled,
	}
	if err := a.services.UpsertService(r.Context(), svc); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	// A stale cache entry would serve the pre-update service.
	a.entitlements.InvalidateService(slug)
	_ = audit.LogEvent(r.Context(), "admin.service.upserted", map[string]any{
		"slug":    slug,
		"enabled": req.Enabled,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      svc.ID,
		"slug":    svc.Slug,
		"name":    svc.Name,
		"enabled": svc.Enabled,
	})
}
