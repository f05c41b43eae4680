// Package httpapi is the HTTP boundary: routing, middleware, request
// decoding and the mapping from domain errors to status codes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"identra.org/internal/entitlement"
	"identra.org/internal/federation"
	"identra.org/internal/identity"
	"identra.org/internal/obs"
	"identra.org/internal/session"
	"identra.org/internal/token"
)

// ReadyProbe checks backing-store readiness.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps bundles the collaborators the API dispatches to.
type Deps struct {
	Codec        *token.Codec
	Resolver     *identity.Resolver
	Directory    *identity.Directory
	Sessions     *session.Service
	Registry     *federation.Registry
	Broker       *federation.Broker
	Configs      federation.ConfigStore
	SecretBox    *federation.SecretBox
	Entitlements *entitlement.Manager
	Services     entitlement.Store
	FrontendURL  string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	codec        *token.Codec
	resolver     *identity.Resolver
	directory    *identity.Directory
	sessions     *session.Service
	registry     *federation.Registry
	broker       *federation.Broker
	configs      federation.ConfigStore
	box          *federation.SecretBox
	entitlements *entitlement.Manager
	services     entitlement.Store
	frontendURL  string
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   rp,
		version:      version,
		codec:        deps.Codec,
		resolver:     deps.Resolver,
		directory:    deps.Directory,
		sessions:     deps.Sessions,
		registry:     deps.Registry,
		broker:       deps.Broker,
		configs:      deps.Configs,
		box:          deps.SecretBox,
		entitlements: deps.Entitlements,
		services:     deps.Services,
		frontendURL:  deps.FrontendURL,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// local auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/password", a.handleChangePassword)

	// current principal
	a.mux.HandleFunc("/v1/me", a.handleMe)

	// oauth federation
	a.mux.HandleFunc("/v1/oauth/", a.handleOAuth)

	// entitlements
	a.mux.HandleFunc("/v1/entitlements/", a.handleEntitlementScoped)
	a.mux.HandleFunc("/v1/consents/", a.handleConsentResource)

	// administration
	a.mux.HandleFunc("/v1/admin/principals/", a.handlePrincipalScoped)
	a.mux.HandleFunc("/v1/admin/providers", a.handleProvidersCollection)
	a.mux.HandleFunc("/v1/admin/providers/", a.handleProviderResource)
	a.mux.HandleFunc("/v1/admin/services/", a.handleServiceResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware-wrapped handler.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.withAuth(a.mux))
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "identra-auth",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
