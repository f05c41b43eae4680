package identity

import (
	"context"

	"identra.org/internal/token"
)

// Kind discriminates the resolved principal variant.
type Kind string

const (
	KindUser     Kind = "USER"
	KindAdmin    Kind = "ADMIN"
	KindOperator Kind = "OPERATOR"
)

// Principal is an authenticated actor resolved from a verified token.
type Principal interface {
	Kind() Kind
	SubjectID() string
	DisplayEmail() string
	// Grants returns the permission strings the principal holds. End users
	// carry none; authorization for them happens on entitlement state.
	Grants() []string
}

// UserPrincipal is an end user, including one resolved from a legacy token.
type UserPrincipal struct {
	ID          string
	Email       string
	Name        string
	AccountMode string
	CountryCode string
	Services    map[string]token.ServiceStanding

	// Carried through from legacy payloads only.
	LegacyRole   string
	LegacyDomain string
}

func (p *UserPrincipal) Kind() Kind           { return KindUser }
func (p *UserPrincipal) SubjectID() string    { return p.ID }
func (p *UserPrincipal) DisplayEmail() string { return p.Email }
func (p *UserPrincipal) Grants() []string     { return nil }

// AdminPrincipal is a system or tenant administrator.
type AdminPrincipal struct {
	ID          string
	Email       string
	Name        string
	Scope       string
	TenantID    string
	RoleID      string
	RoleName    string
	Level       int
	Permissions []string
	Services    []string
}

func (p *AdminPrincipal) Kind() Kind           { return KindAdmin }
func (p *AdminPrincipal) SubjectID() string    { return p.ID }
func (p *AdminPrincipal) DisplayEmail() string { return p.Email }
func (p *AdminPrincipal) Grants() []string     { return p.Permissions }

// OperatorPrincipal is a service- and country-scoped operator.
type OperatorPrincipal struct {
	ID          string
	Email       string
	Name        string
	AdminID     string
	ServiceID   string
	ServiceSlug string
	CountryCode string
	Permissions []string
}

func (p *OperatorPrincipal) Kind() Kind           { return KindOperator }
func (p *OperatorPrincipal) SubjectID() string    { return p.ID }
func (p *OperatorPrincipal) DisplayEmail() string { return p.Email }
func (p *OperatorPrincipal) Grants() []string     { return p.Permissions }

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	v, ok := ctx.Value(principalContextKey{}).(Principal)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
