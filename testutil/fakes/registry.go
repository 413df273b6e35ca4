package fakes

import (
	"context"
	"maps"
	"sync"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// Registry is a stateful in-memory aggregation service. Accounts it accepts through
// CreateMembers become known, so a second run over the same directory finds nothing to do.
type Registry struct {
	mu      sync.Mutex
	known   map[string]struct{}
	reject  map[string]string
	probe   onboarding.ProbeResult
	listErr error
	creates int
}

// NewRegistry creates an enabled Registry that already knows the given account ids.
func NewRegistry(knownIDs ...string) *Registry {
	known := make(map[string]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}

	return &Registry{
		known:  known,
		reject: make(map[string]string),
		probe:  onboarding.ProbeResult{State: onboarding.ProbeEnabled},
	}
}

// RejectAccount makes CreateMembers report the account as unprocessed with reason.
func (r *Registry) RejectAccount(accountID, reason string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reject[accountID] = reason

	return r
}

// WithProbe overrides the probe answer.
func (r *Registry) WithProbe(result onboarding.ProbeResult) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probe = result

	return r
}

// FailListing makes ListKnownAccounts fail with err.
func (r *Registry) FailListing(err error) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listErr = err

	return r
}

// Probe implements onboarding.CapabilityProber.
func (r *Registry) Probe(_ context.Context) onboarding.ProbeResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.probe
}

// ListKnownAccounts implements onboarding.RegistryReader.
func (r *Registry) ListKnownAccounts(_ context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	return maps.Clone(r.known), nil
}

// CreateMembers implements onboarding.MemberCreator.
func (r *Registry) CreateMembers(_ context.Context, requests []onboarding.OnboardRequest) ([]onboarding.Failure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.creates++

	var rejected []onboarding.Failure
	for _, request := range requests {
		if reason, ok := r.reject[request.AccountID]; ok {
			rejected = append(rejected, onboarding.Failure{AccountID: request.AccountID, Reason: reason})
			continue
		}
		r.known[request.AccountID] = struct{}{}
	}

	return rejected, nil
}

// CreateCalls returns how many bulk calls the registry received.
func (r *Registry) CreateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.creates
}

// Knows reports whether the registry knows the account id.
func (r *Registry) Knows(accountID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.known[accountID]

	return ok
}
