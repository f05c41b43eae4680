package federation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"identra.org/internal/identity"
)

// Broker maps provider profiles onto local accounts.
type Broker struct {
	accounts identity.AccountStore
	links    LinkStore
}

// NewBroker constructs a Broker.
func NewBroker(accounts identity.AccountStore, links LinkStore) (*Broker, error) {
	if accounts == nil || links == nil {
		return nil, errors.New("federation: account and link stores are required")
	}
	return &Broker{accounts: accounts, links: links}, nil
}

// FindOrCreateAccount resolves a provider profile to a local account,
// creating and linking one on first sign-in. On repeat sign-ins the stored
// account is returned untouched; profile attributes never overwrite what
// the user may have edited locally. Returns the account and whether it was
// created by this call.
func (b *Broker) FindOrCreateAccount(ctx context.Context, profile *Profile) (*identity.Account, bool, error) {
	if profile == nil {
		return nil, false, errors.New("federation: nil profile")
	}
	if profile.ProviderUserID == "" {
		return nil, false, &MissingAttributeError{Provider: string(profile.Provider), Attribute: "provider user id"}
	}

	accountID, err := b.links.FindAccountID(ctx, profile.Provider, profile.ProviderUserID)
	switch {
	case err == nil:
		account, err := b.accounts.Find(ctx, accountID)
		if err != nil {
			return nil, false, err
		}
		return account, false, nil
	case errors.Is(err, identity.ErrNotFound):
	default:
		return nil, false, err
	}

	if profile.Email == "" {
		return nil, false, &MissingAttributeError{Provider: string(profile.Provider), Attribute: "email"}
	}

	username, err := synthesizeUsername(profile.Email)
	if err != nil {
		return nil, false, err
	}
	account := &identity.Account{
		Email:       strings.ToLower(profile.Email),
		Username:    username,
		Name:        profile.Name,
		AvatarURL:   profile.AvatarURL,
		AccountMode: "PERSONAL",
		Status:      identity.StatusActive,
		Provider:    profile.Provider,
	}
	err = b.links.CreateWithAccount(ctx, account, profile.Provider, profile.ProviderUserID)
	if errors.Is(err, identity.ErrAlreadyExists) {
		// A concurrent sign-in won the race; adopt its account.
		accountID, err := b.links.FindAccountID(ctx, profile.Provider, profile.ProviderUserID)
		if err != nil {
			return nil, false, err
		}
		winner, err := b.accounts.Find(ctx, accountID)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

const usernameSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// synthesizeUsername derives a username from the email local part plus a
// random six-character suffix to dodge collisions.
func synthesizeUsername(email string) (string, error) {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("username suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = usernameSuffixAlphabet[int(b)%len(usernameSuffixAlphabet)]
	}
	return local + "_" + string(buf), nil
}
