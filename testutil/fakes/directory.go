package fakes

import (
	"context"
	"fmt"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// Directory is a static organization directory.
type Directory struct {
	Accounts []onboarding.Account
	Err      error
}

// ListActiveAccounts implements onboarding.DirectoryReader.
func (d Directory) ListActiveAccounts(_ context.Context) ([]onboarding.Account, error) {
	if d.Err != nil {
		return nil, d.Err
	}

	active := make([]onboarding.Account, 0, len(d.Accounts))
	for _, account := range d.Accounts {
		if account.Active() {
			active = append(active, account)
		}
	}

	return active, nil
}

// ActiveAccount builds an active account with a derived email address.
func ActiveAccount(id string) onboarding.Account {
	return onboarding.Account{
		ID:     id,
		Email:  fmt.Sprintf("aws+%s@example.com", id),
		Status: onboarding.StatusActive,
	}
}

// SuspendedAccount builds a suspended account with a derived email address.
func SuspendedAccount(id string) onboarding.Account {
	account := ActiveAccount(id)
	account.Status = onboarding.StatusSuspended

	return account
}

// ActiveAccounts builds n active accounts with zero-padded twelve digit ids starting at 100000000000.
func ActiveAccounts(n int) []onboarding.Account {
	accounts := make([]onboarding.Account, n)
	for i := range accounts {
		accounts[i] = ActiveAccount(fmt.Sprintf("%012d", 100000000000+i))
	}

	return accounts
}
