package identity

import "context"

// AccountStore manages canonical account records.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Update(ctx context.Context, account *Account) error
	SetStatus(ctx context.Context, id, status string) error
}

// AdminStore manages administrator records.
type AdminStore interface {
	Find(ctx context.Context, id string) (*Admin, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// OperatorStore manages operator records.
type OperatorStore interface {
	Find(ctx context.Context, id string) (*Operator, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ProfileStore reads display profiles kept by a separate profile system. A
// missing profile returns ErrNotFound; resolution tolerates it.
type ProfileStore interface {
	DisplayName(ctx context.Context, accountID string) (string, error)
}

// SessionRevoker severs every outstanding session of a principal. Satisfied
// by the session store; declared here so deactivation can revoke
// synchronously without importing the session package.
type SessionRevoker interface {
	RevokeByPrincipal(ctx context.Context, kind Kind, principalID string) (int64, error)
}
