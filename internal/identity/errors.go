package identity

import "errors"

var (
	// ErrPrincipalNotFound covers both a missing and a deactivated backing
	// row. The two cases are deliberately indistinguishable so a rejected
	// token does not reveal whether the principal ever existed.
	ErrPrincipalNotFound = errors.New("identity: principal not found")

	ErrNotFound           = errors.New("identity: not found")
	ErrAlreadyExists      = errors.New("identity: already exists")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrAccountDisabled    = errors.New("identity: account disabled")
	ErrInvalidInput       = errors.New("identity: invalid input")
)
