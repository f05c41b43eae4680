// Package entitlement manages service membership: joins, per-country
// consents and withdrawals, each executed atomically and followed by token
// re-issuance.
package entitlement

import "time"

// Entitlement status values. Withdrawal soft-closes the row; nothing is
// ever deleted.
const (
	StatusActive    = "ACTIVE"
	StatusWithdrawn = "WITHDRAWN"
)

// Service is a joinable service.
type Service struct {
	ID        string
	Slug      string
	Name      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Entitlement records that an account joined a service for one country.
type Entitlement struct {
	ID          string
	AccountID   string
	ServiceID   string
	CountryCode string
	Status      string
	JoinedAt    time.Time
	WithdrawnAt *time.Time
}

// Consent is an account's agreement record for one policy type within an
// entitlement's scope.
type Consent struct {
	ID            string
	EntitlementID string
	Type          string
	Agreed        bool
	IP            string
	UserAgent     string
	AgreedAt      *time.Time
	WithdrawnAt   *time.Time
}

// ConsentRequirement declares a consent type a service demands for a
// country before joining.
type ConsentRequirement struct {
	ServiceID   string
	CountryCode string
	Type        string
	Required    bool
}

// ConsentInput is one consent decision submitted with a join.
type ConsentInput struct {
	Type   string `json:"type"`
	Agreed bool   `json:"agreed"`
}

// Actor identifies the request origin recorded on consent writes.
type Actor struct {
	IP        string
	UserAgent string
}

// TokenPair is the fresh credential set returned after every mutation.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
