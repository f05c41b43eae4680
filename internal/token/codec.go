package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrInvalidTokenType marks a verified token whose type tag names no
	// known payload variant.
	ErrInvalidTokenType = errors.New("token: unrecognized token type")
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
	defaultIssuer     = "identra"
)

// Codec signs and verifies bearer tokens with HS256.
type Codec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures Codec behavior.
type Option func(*Codec) error

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) error {
		if v := strings.TrimSpace(issuer); v != "" {
			c.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(c *Codec) error {
		if ttl > 0 {
			c.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(c *Codec) error {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) error {
		if fn != nil {
			c.now = fn
		}
		return nil
	}
}

// NewCodec constructs a Codec for the given signing secret.
func NewCodec(secret string, opts ...Option) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	c := &Codec{
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// AdminGrant carries the variant fields of an admin access token.
type AdminGrant struct {
	Scope       string
	TenantID    string
	RoleID      string
	RoleName    string
	Level       int
	Permissions []string
	Services    []string
}

// OperatorGrant carries the variant fields of an operator access token.
type OperatorGrant struct {
	AdminID     string
	ServiceID   string
	ServiceSlug string
	CountryCode string
	Permissions []string
}

// IssueUserAccess signs a USER_ACCESS token embedding the account's active
// service snapshot.
func (c *Codec) IssueUserAccess(sub, email, accountMode, countryCode string, services map[string]ServiceStanding) (string, time.Time, error) {
	claims := c.base(sub, email, TypeUserAccess, c.accessTTL)
	claims.AccountMode = accountMode
	claims.CountryCode = countryCode
	if err := claims.SetUserServices(services); err != nil {
		return "", time.Time{}, err
	}
	return c.sign(claims)
}

// IssueUserRefresh signs a USER_REFRESH token carrying only identity claims.
func (c *Codec) IssueUserRefresh(sub, email string) (string, time.Time, error) {
	return c.sign(c.base(sub, email, TypeUserRefresh, c.refreshTTL))
}

// IssueAdminAccess signs an ADMIN_ACCESS token.
func (c *Codec) IssueAdminAccess(sub, email string, grant AdminGrant) (string, time.Time, error) {
	claims := c.base(sub, email, TypeAdminAccess, c.accessTTL)
	claims.Scope = grant.Scope
	claims.TenantID = grant.TenantID
	claims.RoleID = grant.RoleID
	claims.RoleName = grant.RoleName
	claims.Level = grant.Level
	claims.Permissions = grant.Permissions
	if err := claims.SetServiceSlugs(grant.Services); err != nil {
		return "", time.Time{}, err
	}
	return c.sign(claims)
}

// IssueOperatorAccess signs an OPERATOR_ACCESS token.
func (c *Codec) IssueOperatorAccess(sub, email string, grant OperatorGrant) (string, time.Time, error) {
	claims := c.base(sub, email, TypeOperatorAccess, c.accessTTL)
	claims.AdminID = grant.AdminID
	claims.ServiceID = grant.ServiceID
	claims.ServiceSlug = grant.ServiceSlug
	claims.CountryCode = grant.CountryCode
	claims.Permissions = grant.Permissions
	return c.sign(claims)
}

func (c *Codec) base(sub, email string, typ Type, ttl time.Duration) *Claims {
	now := c.now().UTC()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Email: email,
		Type:  typ,
	}
}

func (c *Codec) sign(claims *Claims) (string, time.Time, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", time.Time{}, errors.New("token: subject is required")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks signature and expiry and returns the decoded claims. Every
// failure collapses into ErrInvalidToken so callers cannot leak the cause.
func (c *Codec) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
