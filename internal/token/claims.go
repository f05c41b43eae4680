package token

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates the payload variant carried by a token. The zero value
// marks a legacy token that predates typed payloads.
type Type string

const (
	TypeUserAccess     Type = "USER_ACCESS"
	TypeUserRefresh    Type = "USER_REFRESH"
	TypeAdminAccess    Type = "ADMIN_ACCESS"
	TypeOperatorAccess Type = "OPERATOR_ACCESS"

	// Legacy token types still accepted on the wire.
	TypeLegacyAccess  Type = "ACCESS"
	TypeLegacyRefresh Type = "REFRESH"
	TypeLegacyDomain  Type = "DOMAIN_ACCESS"
)

// Legacy reports whether the type belongs to the pre-variant token format.
func (t Type) Legacy() bool {
	switch t {
	case "", TypeLegacyAccess, TypeLegacyRefresh, TypeLegacyDomain:
		return true
	}
	return false
}

// Refresh reports whether the type marks a refresh token, current or
// legacy.
func (t Type) Refresh() bool {
	return t == TypeUserRefresh || t == TypeLegacyRefresh
}

// Recognized reports whether the type names a current payload variant.
func (t Type) Recognized() bool {
	switch t {
	case TypeUserAccess, TypeUserRefresh, TypeAdminAccess, TypeOperatorAccess:
		return true
	}
	return false
}

// ServiceStanding is one entry of a user token's services map.
type ServiceStanding struct {
	Status    string   `json:"status"`
	Countries []string `json:"countries"`
}

// Claims is the single wire payload able to carry every variant. The type tag
// selects which optional fields are meaningful; the services key holds a
// slug->standing map for user tokens and a slug list for admin tokens, so it
// stays raw until a typed accessor decodes it.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`
	Type  Type   `json:"type,omitempty"`

	// USER_ACCESS
	AccountMode string `json:"accountMode,omitempty"`

	// USER_ACCESS and OPERATOR_ACCESS
	CountryCode string `json:"countryCode,omitempty"`

	Services json.RawMessage `json:"services,omitempty"`

	// ADMIN_ACCESS
	Scope    string `json:"scope,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
	RoleID   string `json:"roleId,omitempty"`
	RoleName string `json:"roleName,omitempty"`
	Level    int    `json:"level,omitempty"`

	// ADMIN_ACCESS and OPERATOR_ACCESS
	Permissions []string `json:"permissions,omitempty"`

	// OPERATOR_ACCESS
	AdminID     string `json:"adminId,omitempty"`
	ServiceID   string `json:"serviceId,omitempty"`
	ServiceSlug string `json:"serviceSlug,omitempty"`

	// Legacy
	Role   string `json:"role,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// UserServices decodes the services map of a user token. A missing or
// malformed field yields an empty map.
func (c *Claims) UserServices() map[string]ServiceStanding {
	out := map[string]ServiceStanding{}
	if len(c.Services) == 0 {
		return out
	}
	_ = json.Unmarshal(c.Services, &out)
	return out
}

// SetUserServices stores the services map of a user token.
func (c *Claims) SetUserServices(services map[string]ServiceStanding) error {
	if services == nil {
		services = map[string]ServiceStanding{}
	}
	raw, err := json.Marshal(services)
	if err != nil {
		return err
	}
	c.Services = raw
	return nil
}

// ServiceSlugs decodes the services list of an admin token.
func (c *Claims) ServiceSlugs() []string {
	if len(c.Services) == 0 {
		return nil
	}
	var out []string
	_ = json.Unmarshal(c.Services, &out)
	return out
}

// SetServiceSlugs stores the services list of an admin token.
func (c *Claims) SetServiceSlugs(slugs []string) error {
	raw, err := json.Marshal(slugs)
	if err != nil {
		return err
	}
	c.Services = raw
	return nil
}
