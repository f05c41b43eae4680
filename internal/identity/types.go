package identity

import "time"

// Provider identifies how an account authenticates.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
	ProviderKakao  Provider = "KAKAO"
	ProviderNaver  Provider = "NAVER"
	ProviderApple  Provider = "APPLE"
)

// Valid reports whether p names a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderKakao, ProviderNaver, ProviderApple:
		return true
	}
	return false
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Admin scopes.
const (
	ScopeSystem = "SYSTEM"
	ScopeTenant = "TENANT"
)

// Account is the canonical end-user record all principals federate into.
type Account struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	Name         string
	AvatarURL    string
	AccountMode  string
	CountryCode  string
	Status       string
	Provider     Provider
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin is a system- or tenant-scoped administrator record.
type Admin struct {
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
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Operator is a service- and country-scoped delegate of an admin.
type Operator struct {
	ID          string
	AdminID     string
	ServiceID   string
	ServiceSlug string
	CountryCode string
	Email       string
	Name        string
	Permissions []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
