package identity

import (
	"context"
	"errors"

	"identra.org/internal/token"
)

// Resolver discriminates a verified token payload and resolves it against
// live backing state. Read-only; safe for concurrent use.
type Resolver struct {
	accounts  AccountStore
	admins    AdminStore
	operators OperatorStore
	profiles  ProfileStore
}

// NewResolver constructs a Resolver. profiles may be nil when no separate
// profile system is deployed.
func NewResolver(accounts AccountStore, admins AdminStore, operators OperatorStore, profiles ProfileStore) (*Resolver, error) {
	if accounts == nil || admins == nil || operators == nil {
		return nil, errors.New("identity: account, admin and operator stores are required")
	}
	return &Resolver{accounts: accounts, admins: admins, operators: operators, profiles: profiles}, nil
}

// Resolve selects the resolution path from the payload's type tag. Missing
// and deactivated principals fail identically with ErrPrincipalNotFound.
func (r *Resolver) Resolve(ctx context.Context, claims *token.Claims) (Principal, error) {
	if claims == nil {
		return nil, token.ErrInvalidToken
	}
	switch {
	case claims.Type == token.TypeUserAccess:
		return r.resolveUser(ctx, claims, false)
	case claims.Type == token.TypeAdminAccess:
		return r.resolveAdmin(ctx, claims)
	case claims.Type == token.TypeOperatorAccess:
		return r.resolveOperator(ctx, claims)
	case claims.Type.Legacy():
		return r.resolveUser(ctx, claims, true)
	default:
		return nil, token.ErrInvalidTokenType
	}
}

func (r *Resolver) resolveUser(ctx context.Context, claims *token.Claims, legacy bool) (Principal, error) {
	account, err := r.accounts.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	if account.Status != StatusActive {
		return nil, ErrPrincipalNotFound
	}

	principal := &UserPrincipal{
		ID:          account.ID,
		Email:       account.Email,
		AccountMode: claims.AccountMode,
		CountryCode: claims.CountryCode,
		Services:    claims.UserServices(),
	}
	if legacy {
		principal.LegacyRole = claims.Role
		principal.LegacyDomain = claims.Domain
	}

	// Display name lives in a separate profile store; its absence is not an
	// error, the principal just has no name.
	if r.profiles != nil {
		name, err := r.profiles.DisplayName(ctx, account.ID)
		switch {
		case err == nil:
			principal.Name = name
		case errors.Is(err, ErrNotFound):
		default:
			return nil, err
		}
	}
	return principal, nil
}

func (r *Resolver) resolveAdmin(ctx context.Context, claims *token.Claims) (Principal, error) {
	admin, err := r.admins.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	if !admin.Active {
		return nil, ErrPrincipalNotFound
	}
	return &AdminPrincipal{
		ID:          admin.ID,
		Email:       admin.Email,
		Name:        admin.Name,
		Scope:       claims.Scope,
		TenantID:    claims.TenantID,
		RoleID:      claims.RoleID,
		RoleName:    claims.RoleName,
		Level:       claims.Level,
		Permissions: claims.Permissions,
		Services:    claims.ServiceSlugs(),
	}, nil
}

func (r *Resolver) resolveOperator(ctx context.Context, claims *token.Claims) (Principal, error) {
	operator, err := r.operators.Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}
	if !operator.Active {
		return nil, ErrPrincipalNotFound
	}
	return &OperatorPrincipal{
		ID:          operator.ID,
		Email:       operator.Email,
		Name:        operator.Name,
		AdminID:     claims.AdminID,
		ServiceID:   claims.ServiceID,
		ServiceSlug: claims.ServiceSlug,
		CountryCode: claims.CountryCode,
		Permissions: claims.Permissions,
	}, nil
}
