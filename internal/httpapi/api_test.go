package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"identra.org/internal/entitlement"
	"identra.org/internal/federation"
	"identra.org/internal/identity"
	"identra.org/internal/session"
	"identra.org/internal/token"
)

type memAccounts struct {
	byID map[string]*identity.Account
}

func (m *memAccounts) Create(ctx context.Context, a *identity.Account) error {
	for _, existing := range m.byID {
		if existing.Email == a.Email || existing.Username == a.Username {
			return identity.ErrAlreadyExists
		}
	}
	m.byID[a.ID] = a
	return nil
}

func (m *memAccounts) Find(ctx context.Context, id string) (*identity.Account, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memAccounts) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	for _, a := range m.byID {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (m *memAccounts) Update(ctx context.Context, a *identity.Account) error {
	copied := *a
	m.byID[a.ID] = &copied
	return nil
}

func (m *memAccounts) SetStatus(ctx context.Context, id, status string) error {
	a, ok := m.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	a.Status = status
	return nil
}

type memAdmins struct {
	byID map[string]*identity.Admin
}

func (m *memAdmins) Find(ctx context.Context, id string) (*identity.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return a, nil
}

func (m *memAdmins) SetActive(ctx context.Context, id string, active bool) error {
	a, ok := m.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	a.Active = active
	return nil
}

type memOperators struct {
	byID map[string]*identity.Operator
}

func (m *memOperators) Find(ctx context.Context, id string) (*identity.Operator, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return o, nil
}

func (m *memOperators) SetActive(ctx context.Context, id string, active bool) error {
	o, ok := m.byID[id]
	if !ok {
		return identity.ErrNotFound
	}
	o.Active = active
	return nil
}

type memSessions struct {
	byHash map[string]*session.Session
}

func (m *memSessions) Create(ctx context.Context, s *session.Session) error {
	m.byHash[s.TokenHash] = s
	return nil
}

func (m *memSessions) FindByTokenHash(ctx context.Context, hash string) (*session.Session, error) {
	s, ok := m.byHash[hash]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (m *memSessions) RevokeByTokenHash(ctx context.Context, hash string) error {
	s, ok := m.byHash[hash]
	if !ok || s.RevokedAt != nil {
		return session.ErrSessionNotFound
	}
	now := time.Now()
	s.RevokedAt = &now
	return nil
}

func (m *memSessions) RevokeByPrincipal(ctx context.Context, kind identity.Kind, principalID string) (int64, error) {
	var n int64
	now := time.Now()
	for _, s := range m.byHash {
		if s.Kind == kind && s.PrincipalID == principalID && s.RevokedAt == nil {
			s.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

type memEntitlements struct {
	services     map[string]*entitlement.Service
	requirements map[string][]entitlement.ConsentRequirement
	snapshot     map[string]token.ServiceStanding
	joined       []*entitlement.Entitlement
}

func (m *memEntitlements) FindServiceBySlug(ctx context.Context, slug string) (*entitlement.Service, error) {
	svc, ok := m.services[slug]
	if !ok {
		return nil, entitlement.ErrServiceNotFound
	}
	return svc, nil
}

func (m *memEntitlements) UpsertService(ctx context.Context, svc *entitlement.Service) error {
	m.services[svc.Slug] = svc
	return nil
}

func (m *memEntitlements) Requirements(ctx context.Context, serviceID, countryCode string) ([]entitlement.ConsentRequirement, error) {
	return m.requirements[serviceID+"/"+countryCode], nil
}

func (m *memEntitlements) Join(ctx context.Context, ent *entitlement.Entitlement, consents []entitlement.Consent) error {
	m.joined = append(m.joined, ent)
	return nil
}

func (m *memEntitlements) ActiveByService(ctx context.Context, accountID, serviceID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for _, ent := range m.joined {
		if ent.AccountID == accountID && ent.ServiceID == serviceID && ent.Status == entitlement.StatusActive {
			out = append(out, ent)
		}
	}
	return out, nil
}

func (m *memEntitlements) FindConsent(ctx context.Context, accountID, consentID string) (*entitlement.Consent, *entitlement.Entitlement, error) {
	return nil, nil, entitlement.ErrConsentNotFound
}

func (m *memEntitlements) SetConsent(ctx context.Context, consentID string, agreed bool, actor entitlement.Actor) error {
	return nil
}

func (m *memEntitlements) Withdraw(ctx context.Context, accountID, serviceID, countryCode string) (int64, error) {
	var n int64
	for _, ent := range m.joined {
		if ent.AccountID == accountID && ent.ServiceID == serviceID && ent.Status == entitlement.StatusActive {
			if countryCode != "" && ent.CountryCode != countryCode {
				continue
			}
			ent.Status = entitlement.StatusWithdrawn
			n++
		}
	}
	return n, nil
}

func (m *memEntitlements) Snapshot(ctx context.Context, accountID string) (map[string]token.ServiceStanding, error) {
	return m.snapshot, nil
}

type memConfigs struct {
	byProvider map[identity.Provider]*federation.ProviderConfig
}

func (m *memConfigs) Get(ctx context.Context, provider identity.Provider) (*federation.ProviderConfig, error) {
	cfg, ok := m.byProvider[provider]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return cfg, nil
}

func (m *memConfigs) List(ctx context.Context) ([]*federation.ProviderConfig, error) {
	out := make([]*federation.ProviderConfig, 0, len(m.byProvider))
	for _, cfg := range m.byProvider {
		out = append(out, cfg)
	}
	return out, nil
}

func (m *memConfigs) Upsert(ctx context.Context, cfg *federation.ProviderConfig) error {
	m.byProvider[cfg.Provider] = cfg
	return nil
}

type memLinks struct {
	accounts *memAccounts
	links    map[string]string
}

func (m *memLinks) FindAccountID(ctx context.Context, provider identity.Provider, providerUserID string) (string, error) {
	id, ok := m.links[string(provider)+"/"+providerUserID]
	if !ok {
		return "", identity.ErrNotFound
	}
	return id, nil
}

func (m *memLinks) CreateWithAccount(ctx context.Context, account *identity.Account, provider identity.Provider, providerUserID string) error {
	if err := m.accounts.Create(ctx, account); err != nil {
		return err
	}
	m.links[string(provider)+"/"+providerUserID] = account.ID
	return nil
}

type apiFixture struct {
	handler  http.Handler
	api      *API
	accounts *memAccounts
	admins   *memAdmins
	ents     *memEntitlements
	configs  *memConfigs
	codec    *token.Codec
	box      *federation.SecretBox
}

func newTestAPI(t *testing.T) *apiFixture {
	t.Helper()

	accounts := &memAccounts{byID: map[string]*identity.Account{}}
	admins := &memAdmins{byID: map[string]*identity.Admin{}}
	operators := &memOperators{byID: map[string]*identity.Operator{}}
	sessionStore := &memSessions{byHash: map[string]*session.Session{}}

	sessions, err := session.NewService(sessionStore)
	if err != nil {
		t.Fatalf("session.NewService: %v", err)
	}
	codec, err := token.NewCodec("httpapi-test-secret")
	if err != nil {
		t.Fatalf("token.NewCodec: %v", err)
	}
	resolver, err := identity.NewResolver(accounts, admins, operators, nil)
	if err != nil {
		t.Fatalf("identity.NewResolver: %v", err)
	}
	directory, err := identity.NewDirectory(accounts, admins, operators, sessions)
	if err != nil {
		t.Fatalf("identity.NewDirectory: %v", err)
	}
	box, err := federation.NewSecretBox(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("federation.NewSecretBox: %v", err)
	}
	configs := &memConfigs{byProvider: map[identity.Provider]*federation.ProviderConfig{}}
	registry, err := federation.NewRegistry(configs, box)
	if err != nil {
		t.Fatalf("federation.NewRegistry: %v", err)
	}
	broker, err := federation.NewBroker(accounts, &memLinks{accounts: accounts, links: map[string]string{}})
	if err != nil {
		t.Fatalf("federation.NewBroker: %v", err)
	}
	ents := &memEntitlements{
		services: map[string]*entitlement.Service{
			"blog": {ID: "svc-blog", Slug: "blog", Name: "Blog", Enabled: true},
		},
		requirements: map[string][]entitlement.ConsentRequirement{
			"svc-blog/KR": {
				{ServiceID: "svc-blog", CountryCode: "KR", Type: "TERMS_OF_SERVICE", Required: true},
			},
		},
		snapshot: map[string]token.ServiceStanding{},
	}
	manager, err := entitlement.NewManager(ents, entitlement.NewLRUCache(8, time.Minute), accounts, codec, sessions)
	if err != nil {
		t.Fatalf("entitlement.NewManager: %v", err)
	}

	api := New(ReadyProbe{}, "test", Deps{
		Codec:        codec,
		Resolver:     resolver,
		Directory:    directory,
		Sessions:     sessions,
		Registry:     registry,
		Broker:       broker,
		Configs:      configs,
		SecretBox:    box,
		Entitlements: manager,
		Services:     ents,
	})
	return &apiFixture{
		handler:  api.Handler(),
		api:      api,
		accounts: accounts,
		admins:   admins,
		ents:     ents,
		configs:  configs,
		codec:    codec,
		box:      box,
	}
}

func (fx *apiFixture) seedProvider(t *testing.T, name identity.Provider, clientID, secret string) {
	t.Helper()
	sealed, err := fx.box.Seal(secret)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	fx.configs.byProvider[name] = &federation.ProviderConfig{
		Provider:     name,
		ClientID:     clientID,
		SealedSecret: sealed,
		RedirectURL:  "https://api.example.com/v1/oauth/callback",
		Enabled:      true,
	}
}

func (fx *apiFixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (fx *apiFixture) registerAndLogin(t *testing.T) (string, string) {
	t.Helper()
	rec := fx.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":       "user@example.com",
		"username":    "user1",
		"password":    "hunter22hunter22",
		"name":        "User One",
		"countryCode": "KR",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", rec.Code, rec.Body.String())
	}
	rec = fx.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "user@example.com",
		"password": "hunter22hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	tokens, ok := body["tokens"].(map[string]any)
	if !ok {
		t.Fatalf("login response missing tokens: %v", body)
	}
	access, _ := tokens["accessToken"].(string)
	refresh, _ := tokens["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("empty token pair: %v", tokens)
	}
	return access, refresh
}

func TestHealthz(t *testing.T) {
	fx := newTestAPI(t)
	rec := fx.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["service"] != "identra-auth" || body["version"] != "test" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAuthRequiredCollapsesFailures(t *testing.T) {
	fx := newTestAPI(t)

	cases := map[string]string{
		"no token":     "",
		"garbage":      "not-a-jwt",
		"wrong secret": mustSign(t, "other-secret"),
	}
	for name, bearer := range cases {
		rec := fx.do(t, http.MethodGet, "/v1/me", bearer, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status %d", name, rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "unauthorized" {
			t.Fatalf("%s: cause leaked: %v", name, body)
		}
	}
}

func mustSign(t *testing.T, secret string) string {
	t.Helper()
	c, err := token.NewCodec(secret)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	raw, _, err := c.IssueUserAccess("ghost", "g@example.com", "PERSONAL", "KR", nil)
	if err != nil {
		t.Fatalf("IssueUserAccess: %v", err)
	}
	return raw
}

func TestRegisterDuplicate(t *testing.T) {
	fx := newTestAPI(t)
	fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"email":       "user@example.com",
		"username":    "user2",
		"password":    "hunter22hunter22",
		"countryCode": "KR",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestLoginBadCredentials(t *testing.T) {
	fx := newTestAPI(t)
	fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    "user@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	if body := decodeBody(t, rec); body["error"] != "invalid credentials" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMeWithUserToken(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodGet, "/v1/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["kind"] != "USER" || body["email"] != "user@example.com" {
		t.Fatalf("unexpected principal: %v", body)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	fx := newTestAPI(t)
	_, refresh := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	next, _ := body["refreshToken"].(string)
	if next == "" || next == refresh {
		t.Fatalf("refresh token not rotated")
	}

	// The old refresh token is revoked and cannot be replayed.
	rec = fx.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refreshToken": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: status %d", rec.Code)
	}

	// The rotated token still works.
	rec = fx.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refreshToken": next})
	if rec.Code != http.StatusOK {
		t.Fatalf("rotated refresh: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refreshToken": access})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token accepted for refresh: status %d", rec.Code)
	}
}

func TestLogoutThenRefresh(t *testing.T) {
	fx := newTestAPI(t)
	_, refresh := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/auth/logout", "", map[string]any{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	rec = fx.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]any{"refreshToken": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status %d", rec.Code)
	}
}

func TestJoinEntitlementOverHTTP(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/entitlements/blog/join", access, map[string]any{
		"countryCode": "KR",
		"consents":    []map[string]any{{"type": "TERMS_OF_SERVICE", "agreed": true}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("join: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if _, ok := body["tokens"].(map[string]any); !ok {
		t.Fatalf("join response missing re-issued tokens: %v", body)
	}
}

func TestJoinEntitlementErrorMapping(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	rec := fx.do(t, http.MethodPost, "/v1/entitlements/nope/join", access, map[string]any{
		"countryCode": "KR",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown service: status %d", rec.Code)
	}

	rec = fx.do(t, http.MethodPost, "/v1/entitlements/blog/join", access, map[string]any{
		"countryCode": "KR",
		"consents":    []map[string]any{},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing consent: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	missing, _ := body["missing"].([]any)
	if len(missing) != 1 || missing[0] != "TERMS_OF_SERVICE" {
		t.Fatalf("missing list not reported: %v", body)
	}
}

func TestAdminGuard(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	// A user token lacks admin grants.
	rec := fx.do(t, http.MethodGet, "/v1/admin/providers", access, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	missing, _ := body["missing"].([]any)
	if len(missing) != 1 || missing[0] != "provider:read" {
		t.Fatalf("missing permissions not reported: %v", body)
	}

	// An admin holding the permission passes.
	fx.admins.byID["adm-1"] = &identity.Admin{ID: "adm-1", Email: "admin@example.com", Active: true}
	adminToken, _, err := fx.codec.IssueAdminAccess("adm-1", "admin@example.com", token.AdminGrant{
		Permissions: []string{"provider:read"},
	})
	if err != nil {
		t.Fatalf("IssueAdminAccess: %v", err)
	}
	rec = fx.do(t, http.MethodGet, "/v1/admin/providers", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin on admin route: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestProviderUpsertMasksSecret(t *testing.T) {
	fx := newTestAPI(t)
	fx.admins.byID["adm-1"] = &identity.Admin{ID: "adm-1", Email: "admin@example.com", Active: true}
	adminToken, _, err := fx.codec.IssueAdminAccess("adm-1", "admin@example.com", token.AdminGrant{
		Permissions: []string{"*"},
	})
	if err != nil {
		t.Fatalf("IssueAdminAccess: %v", err)
	}

	rec := fx.do(t, http.MethodPut, "/v1/admin/providers/GOOGLE", adminToken, map[string]any{
		"clientId":     "google-client",
		"clientSecret": "super-secret-value",
		"redirectUrl":  "https://identra.org/v1/oauth/GOOGLE/callback",
		"enabled":      true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	masked, _ := body["maskedSecret"].(string)
	if masked == "" || strings.Contains(masked, "super-secret") || !strings.HasSuffix(masked, "alue") {
		t.Fatalf("secret not masked: %q", masked)
	}

	// The stored blob is sealed, never the raw secret.
	stored := fx.configs.byProvider[identity.ProviderGoogle]
	if stored.SealedSecret == "super-secret-value" {
		t.Fatalf("secret stored in the clear")
	}

	// The authorize endpoint now redirects to Google with a state cookie.
	rec = fx.do(t, http.MethodGet, "/v1/oauth/google/authorize", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("authorize: status %d body %s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "state=") || !strings.Contains(loc, "client_id=google-client") {
		t.Fatalf("unexpected redirect: %s", loc)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), stateCookie+"=") {
		t.Fatalf("state cookie not set")
	}
}

func TestOAuthAuthorizeStateCookieSameSite(t *testing.T) {
	fx := newTestAPI(t)
	fx.seedProvider(t, identity.ProviderApple, "apple-client", "apple-secret")
	fx.seedProvider(t, identity.ProviderGoogle, "google-client", "google-secret")

	// Apple returns the callback as a cross-site form POST, so its state
	// cookie has to survive that: SameSite=None and Secure.
	rec := fx.do(t, http.MethodGet, "/v1/oauth/apple/authorize", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("apple authorize: status %d body %s", rec.Code, rec.Body.String())
	}
	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, stateCookie+"=") {
		t.Fatalf("apple state cookie not set: %q", cookie)
	}
	if !strings.Contains(cookie, "SameSite=None") {
		t.Fatalf("apple state cookie must be SameSite=None: %q", cookie)
	}
	if !strings.Contains(cookie, "Secure") {
		t.Fatalf("apple state cookie must be Secure: %q", cookie)
	}

	// GET-redirect providers keep the stricter Lax default.
	rec = fx.do(t, http.MethodGet, "/v1/oauth/google/authorize", "", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("google authorize: status %d body %s", rec.Code, rec.Body.String())
	}
	cookie = rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, "SameSite=Lax") || strings.Contains(cookie, "SameSite=None") {
		t.Fatalf("google state cookie must stay Lax: %q", cookie)
	}
}

func TestOAuthAuthorizeUnknownProvider(t *testing.T) {
	fx := newTestAPI(t)
	rec := fx.do(t, http.MethodGet, "/v1/oauth/google/authorize", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unconfigured provider: status %d", rec.Code)
	}
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	fx := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/oauth/google/callback?state=forged&code=x", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "expected"})
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged state: status %d", rec.Code)
	}
}

func TestDeactivateRevokesAccess(t *testing.T) {
	fx := newTestAPI(t)
	access, _ := fx.registerAndLogin(t)

	fx.admins.byID["adm-1"] = &identity.Admin{ID: "adm-1", Email: "admin@example.com", Active: true}
	adminToken, _, err := fx.codec.IssueAdminAccess("adm-1", "admin@example.com", token.AdminGrant{
		Permissions: []string{"principal:deactivate"},
	})
	if err != nil {
		t.Fatalf("IssueAdminAccess: %v", err)
	}

	var accountID string
	for id := range fx.accounts.byID {
		accountID = id
	}
	rec := fx.do(t, http.MethodPost, "/v1/admin/principals/user/"+accountID+"/deactivate", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: status %d body %s", rec.Code, rec.Body.String())
	}

	// The still-valid access token no longer resolves.
	rec = fx.do(t, http.MethodGet, "/v1/me", access, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated principal resolved: status %d", rec.Code)
	}
}
