package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"identra.org/internal/ids"
)

// Directory owns account lifecycle operations: local registration and login,
// password changes and principal deactivation.
type Directory struct {
	accounts  AccountStore
	admins    AdminStore
	operators OperatorStore
	sessions  SessionRevoker
	now       func() time.Time
}

// NewDirectory constructs a Directory.
func NewDirectory(accounts AccountStore, admins AdminStore, operators OperatorStore, sessions SessionRevoker) (*Directory, error) {
	if accounts == nil || admins == nil || operators == nil {
		return nil, errors.New("identity: account, admin and operator stores are required")
	}
	if sessions == nil {
		return nil, errors.New("identity: session revoker is required")
	}
	return &Directory{
		accounts:  accounts,
		admins:    admins,
		operators: operators,
		sessions:  sessions,
		now:       time.Now,
	}, nil
}

// Register creates a local account with a hashed password.
func (d *Directory) Register(ctx context.Context, email, username, password, name, countryCode string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &Account{
		ID:           ids.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		AccountMode:  "PERSONAL",
		CountryCode:  strings.ToUpper(strings.TrimSpace(countryCode)),
		Status:       StatusActive,
		Provider:     ProviderLocal,
	}
	if err := d.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login verifies local credentials. A disabled account is rejected before
// the password check so its hash is never exercised.
func (d *Directory) Login(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	account, err := d.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if account.Status != StatusActive {
		return nil, ErrAccountDisabled
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := d.now().UTC()
	account.LastLoginAt = &now
	if err := d.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Account loads an active account. Disabled accounts behave as missing.
func (d *Directory) Account(ctx context.Context, id string) (*Account, error) {
	account, err := d.accounts.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.Status != StatusActive {
		return nil, ErrNotFound
	}
	return account, nil
}

// ChangePassword rotates a local account's password. Accounts bound to an
// OAuth provider have no password to change.
func (d *Directory) ChangePassword(ctx context.Context, accountID, current, next string) error {
	account, err := d.accounts.Find(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Provider != ProviderLocal || account.PasswordHash == "" {
		return fmt.Errorf("%w: password change not allowed for federated accounts", ErrInvalidInput)
	}
	if err := VerifyPassword(account.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return d.accounts.Update(ctx, account)
}

// Deactivate disables a principal and synchronously revokes all of its
// outstanding sessions. An already-issued access token stays valid until
// natural expiry, which is why the session sweep cannot be deferred.
func (d *Directory) Deactivate(ctx context.Context, kind Kind, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: principal id is required", ErrInvalidInput)
	}
	var err error
	switch kind {
	case KindUser:
		err = d.accounts.SetStatus(ctx, id, StatusDisabled)
	case KindAdmin:
		err = d.admins.SetActive(ctx, id, false)
	case KindOperator:
		err = d.operators.SetActive(ctx, id, false)
	default:
		return fmt.Errorf("%w: unknown principal kind %q", ErrInvalidInput, kind)
	}
	if err != nil {
		return err
	}
	if _, err := d.sessions.RevokeByPrincipal(ctx, kind, id); err != nil {
		return fmt.Errorf("revoke sessions for %s %s: %w", kind, id, err)
	}
	return nil
}
