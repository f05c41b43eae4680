package entitlement

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrServiceNotFound means no enabled service carries the slug.
	ErrServiceNotFound = errors.New("entitlement: service not found")

	// ErrAlreadyJoined means an entitlement row already exists for the
	// account, service and country.
	ErrAlreadyJoined = errors.New("entitlement: already joined")

	// ErrAlreadyConsented means the target country already has a row for
	// this service.
	ErrAlreadyConsented = errors.New("entitlement: country already added")

	// ErrServiceNotJoined means no active entitlement exists for the
	// service in any country.
	ErrServiceNotJoined = errors.New("entitlement: service not joined")

	// ErrConsentNotFound means the consent row does not exist or belongs to
	// another account.
	ErrConsentNotFound = errors.New("entitlement: consent not found")

	// ErrRequiredConsentWithdrawal means a required consent cannot be
	// withdrawn while its entitlement is active.
	ErrRequiredConsentWithdrawal = errors.New("entitlement: required consent cannot be withdrawn while active")
)

// MissingConsentError lists the required consent types a join submitted
// absent or unagreed.
type MissingConsentError struct {
	Types []string
}

func (e *MissingConsentError) Error() string {
	return fmt.Sprintf("entitlement: missing required consent: %s", strings.Join(e.Types, ", "))
}
