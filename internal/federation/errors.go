package federation

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider means the requested provider slug is not registered
	// or is disabled.
	ErrUnknownProvider = errors.New("federation: unknown provider")

	// ErrExchangeFailed wraps authorization-code exchange failures.
	ErrExchangeFailed = errors.New("federation: code exchange failed")

	// ErrProfileFetch wraps profile endpoint failures after a successful
	// exchange.
	ErrProfileFetch = errors.New("federation: profile fetch failed")
)

// MissingAttributeError reports a provider profile that lacks an attribute
// account creation cannot proceed without.
type MissingAttributeError struct {
	Provider  string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("federation: %s profile is missing %s", e.Provider, e.Attribute)
}
