package onboarding

// ReconciliationResult is the diff between the directory and the registry.
// OnboardSet keeps the directory order of first appearance, which makes batch order reproducible.
type ReconciliationResult struct {
	DirectoryCount int
	RegistryCount  int
	OnboardSet     []Account
}

// Reconcile computes the accounts that are active in the directory, unknown to the registry
// and not the delegated administrator itself.
//
// It is a pure function: identical inputs always give identical results. Repeated directory
// entries for the same id are collapsed onto the first one.
func Reconcile(accounts []Account, knownIDs map[string]struct{}, excludeID string) ReconciliationResult {
	onboardSet := make([]Account, 0, len(accounts))
	seen := make(map[string]struct{}, len(accounts))

	for _, account := range accounts {
		if !account.Active() || account.ID == "" || account.ID == excludeID {
			continue
		}

		if _, known := knownIDs[account.ID]; known {
			continue
		}

		if _, dup := seen[account.ID]; dup {
			continue
		}

		seen[account.ID] = struct{}{}
		onboardSet = append(onboardSet, account)
	}

	return ReconciliationResult{
		DirectoryCount: len(accounts),
		RegistryCount:  len(knownIDs),
		OnboardSet:     onboardSet,
	}
}

// OnboardRequests projects the onboarding set onto bulk-call payloads, in the same order.
func (r ReconciliationResult) OnboardRequests() []OnboardRequest {
	requests := make([]OnboardRequest, len(r.OnboardSet))
	for i, account := range r.OnboardSet {
		requests[i] = account.OnboardRequest()
	}

	return requests
}

// Contains reports whether the account id is part of the onboarding set.
func (r ReconciliationResult) Contains(accountID string) bool {
	for _, account := range r.OnboardSet {
		if account.ID == accountID {
			return true
		}
	}

	return false
}
