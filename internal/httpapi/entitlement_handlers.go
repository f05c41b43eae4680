package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"identra.org/internal/audit"
	"identra.org/internal/entitlement"
)

type joinRequest struct {
	CountryCode string                     `json:"countryCode"`
	Consents    []entitlement.ConsentInput `json:"consents"`
}

type updateConsentRequest struct {
	Agreed bool `json:"agreed"`
}

func actorFrom(r *http.Request) entitlement.Actor {
	return entitlement.Actor{IP: clientIP(r), UserAgent: r.UserAgent()}
}

// handleEntitlementScoped dispatches /v1/entitlements/{slug}[/join|/countries].
func (a *API) handleEntitlementScoped(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/entitlements/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	slug := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "join":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.joinService(w, r, user.ID, slug)
	case len(parts) == 2 && parts[1] == "countries":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.addCountry(w, r, user.ID, slug)
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		a.withdrawService(w, r, user.ID, slug)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) joinService(w http.ResponseWriter, r *http.Request, accountID, slug string) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.entitlements.JoinService(r.Context(), accountID, slug, req.CountryCode, req.Consents, actorFrom(r))
	if err != nil {
		handleEntitlementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "entitlement.joined", map[string]any{
		"service": slug,
		"country": req.CountryCode,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"tokens": pair})
}

func (a *API) addCountry(w http.ResponseWriter, r *http.Request, accountID, slug string) {
	var req joinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.entitlements.AddCountryConsent(r.Context(), accountID, slug, req.CountryCode, req.Consents, actorFrom(r))
	if err != nil {
		handleEntitlementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "entitlement.country_added", map[string]any{
		"service": slug,
		"country": req.CountryCode,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"tokens": pair})
}

func (a *API) withdrawService(w http.ResponseWriter, r *http.Request, accountID, slug string) {
	country := r.URL.Query().Get("country")
	pair, err := a.entitlements.WithdrawService(r.Context(), accountID, slug, country)
	if err != nil {
		handleEntitlementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "entitlement.withdrawn", map[string]any{
		"service": slug,
		"country": country,
	})
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

// handleConsentResource dispatches PATCH /v1/consents/{id}.
func (a *API) handleConsentResource(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	consentID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/consents/"), "/")
	if consentID == "" || strings.Contains(consentID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	var req updateConsentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := a.entitlements.UpdateConsent(r.Context(), user.ID, consentID, req.Agreed, actorFrom(r))
	if err != nil {
		handleEntitlementError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "entitlement.consent_updated", map[string]any{
		"consent_id": consentID,
		"agreed":     req.Agreed,
	})
	writeJSON(w, http.StatusOK, map[string]any{"tokens": pair})
}

func handleEntitlementError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *entitlement.MissingConsentError
	switch {
	case errors.Is(err, entitlement.ErrServiceNotFound),
		errors.Is(err, entitlement.ErrServiceNotJoined),
		errors.Is(err, entitlement.ErrConsentNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, entitlement.ErrAlreadyJoined),
		errors.Is(err, entitlement.ErrAlreadyConsented):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "missing required consent",
			"missing": missing.Types,
		})
	case errors.Is(err, entitlement.ErrRequiredConsentWithdrawal):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
