package identity

import (
	"context"
	"errors"
	"testing"
)

type fakeRevoker struct {
	calls []string
}

func (f *fakeRevoker) RevokeByPrincipal(ctx context.Context, kind Kind, principalID string) (int64, error) {
	f.calls = append(f.calls, string(kind)+"/"+principalID)
	return 1, nil
}

func newTestDirectory(t *testing.T) (*Directory, *fakeAccounts, *fakeAdmins, *fakeOperators, *fakeRevoker) {
	t.Helper()
	accounts := &fakeAccounts{byID: map[string]*Account{}}
	admins := &fakeAdmins{byID: map[string]*Admin{}}
	operators := &fakeOperators{byID: map[string]*Operator{}}
	revoker := &fakeRevoker{}
	d, err := NewDirectory(accounts, admins, operators, revoker)
	if err != nil {
		t.Fatalf("NewDirectory: %v", err)
	}
	return d, accounts, admins, operators, revoker
}

func TestRegisterAndLogin(t *testing.T) {
	d, _, _, _, _ := newTestDirectory(t)

	account, err := d.Register(context.Background(), "User@Example.com", "user1", "hunter22", "User One", "kr")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Email != "user@example.com" {
		t.Fatalf("email not normalized: %s", account.Email)
	}
	if account.CountryCode != "KR" {
		t.Fatalf("country not normalized: %s", account.CountryCode)
	}
	if account.PasswordHash == "" || account.PasswordHash == "hunter22" {
		t.Fatalf("password not hashed")
	}

	logged, err := d.Login(context.Background(), "user@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logged.LastLoginAt == nil {
		t.Fatalf("login timestamp not recorded")
	}

	if _, err := d.Login(context.Background(), "user@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := d.Login(context.Background(), "nobody@example.com", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must fail like a bad password, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	d, accounts, _, _, _ := newTestDirectory(t)
	hash, _ := HashPassword("hunter22")
	accounts.byID["acc-1"] = &Account{ID: "acc-1", Email: "a@example.com", PasswordHash: hash, Status: StatusDisabled}

	if _, err := d.Login(context.Background(), "a@example.com", "hunter22"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestChangePasswordFederatedDenied(t *testing.T) {
	d, accounts, _, _, _ := newTestDirectory(t)
	accounts.byID["acc-1"] = &Account{ID: "acc-1", Provider: ProviderGoogle, Status: StatusActive}

	err := d.ChangePassword(context.Background(), "acc-1", "old", "new")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for federated account, got %v", err)
	}
}

func TestDeactivateRevokesSessions(t *testing.T) {
	d, accounts, admins, operators, revoker := newTestDirectory(t)
	accounts.byID["acc-1"] = &Account{ID: "acc-1", Status: StatusActive}
	admins.byID["adm-1"] = &Admin{ID: "adm-1", Active: true}
	operators.byID["op-1"] = &Operator{ID: "op-1", Active: true}

	if err := d.Deactivate(context.Background(), KindUser, "acc-1"); err != nil {
		t.Fatalf("Deactivate user: %v", err)
	}
	if accounts.byID["acc-1"].Status != StatusDisabled {
		t.Fatalf("account not disabled")
	}
	if err := d.Deactivate(context.Background(), KindAdmin, "adm-1"); err != nil {
		t.Fatalf("Deactivate admin: %v", err)
	}
	if admins.byID["adm-1"].Active {
		t.Fatalf("admin still active")
	}
	if err := d.Deactivate(context.Background(), KindOperator, "op-1"); err != nil {
		t.Fatalf("Deactivate operator: %v", err)
	}
	if operators.byID["op-1"].Active {
		t.Fatalf("operator still active")
	}

	want := []string{"USER/acc-1", "ADMIN/adm-1", "OPERATOR/op-1"}
	if len(revoker.calls) != len(want) {
		t.Fatalf("expected %d revocations, got %v", len(want), revoker.calls)
	}
	for i, call := range want {
		if revoker.calls[i] != call {
			t.Fatalf("revocation %d: expected %s, got %s", i, call, revoker.calls[i])
		}
	}
}

func TestDeactivateUnknownKind(t *testing.T) {
	d, _, _, _, _ := newTestDirectory(t)
	if err := d.Deactivate(context.Background(), Kind("ROBOT"), "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
