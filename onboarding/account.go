package onboarding

// AccountStatus is the lifecycle state of an organization account as far as onboarding cares.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
	StatusOther     AccountStatus = "OTHER"
)

// ParseAccountStatus maps a provider status string onto AccountStatus.
// Anything that is neither ACTIVE nor SUSPENDED (PENDING_CLOSURE, empty, ...) becomes StatusOther.
func ParseAccountStatus(raw string) AccountStatus {
	switch AccountStatus(raw) {
	case StatusActive:
		return StatusActive
	case StatusSuspended:
		return StatusSuspended
	default:
		return StatusOther
	}
}

// Account is a snapshot of one organization account taken at the start of a run.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	Status      AccountStatus
}

// Active reports whether the account is eligible for onboarding at all.
func (a Account) Active() bool {
	return a.Status == StatusActive
}

// OnboardRequest projects the account onto the payload the aggregation service needs.
func (a Account) OnboardRequest() OnboardRequest {
	return OnboardRequest{AccountID: a.ID, Email: a.Email}
}

// MemberRecord is an account the aggregation service already knows, associated or merely invited.
type MemberRecord struct {
	AccountID string
}

// OnboardRequest is the per-account payload of a bulk onboard call.
type OnboardRequest struct {
	AccountID string
	Email     string
}

// KnownIDs collapses member records into the id set the Reconciler consumes.
func KnownIDs(records []MemberRecord) map[string]struct{} {
	known := make(map[string]struct{}, len(records))
	for _, record := range records {
		if record.AccountID == "" {
			continue
		}
		known[record.AccountID] = struct{}{}
	}

	return known
}
