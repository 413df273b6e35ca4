package fakes

import (
	"context"
	"sync"

	"github.com/cloudsecops/orgonboard/onboarding"
)

// Response scripts the answer of one bulk call.
type Response struct {
	Rejected []onboarding.Failure
	Err      error
}

// MemberCreator answers bulk calls from a script and records every batch it receives.
// Calls beyond the script succeed without rejections. It also serves as a MemberInviter.
type MemberCreator struct {
	mu        sync.Mutex
	script    []Response
	calls     [][]onboarding.OnboardRequest
	invites   [][]string
	callCount int
}

// NewMemberCreator creates a MemberCreator that answers the n-th call with script[n].
func NewMemberCreator(script ...Response) *MemberCreator {
	return &MemberCreator{script: script}
}

// CreateMembers implements onboarding.MemberCreator.
func (m *MemberCreator) CreateMembers(_ context.Context, requests []onboarding.OnboardRequest) ([]onboarding.Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]onboarding.OnboardRequest(nil), requests...))

	return m.next()
}

// InviteMembers implements onboarding.MemberInviter.
func (m *MemberCreator) InviteMembers(_ context.Context, accountIDs []string) ([]onboarding.Failure, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invites = append(m.invites, append([]string(nil), accountIDs...))

	return m.next()
}

func (m *MemberCreator) next() ([]onboarding.Failure, error) {
	index := m.callCount
	m.callCount++

	if index >= len(m.script) {
		return nil, nil
	}

	return m.script[index].Rejected, m.script[index].Err
}

// Calls returns the batches received by CreateMembers, in call order.
func (m *MemberCreator) Calls() [][]onboarding.OnboardRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]onboarding.OnboardRequest(nil), m.calls...)
}

// Invites returns the batches received by InviteMembers, in call order.
func (m *MemberCreator) Invites() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]string(nil), m.invites...)
}

// SubmittedIDs flattens all CreateMembers batches into account ids.
func (m *MemberCreator) SubmittedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for _, batch := range m.calls {
		for _, request := range batch {
			ids = append(ids, request.AccountID)
		}
	}

	return ids
}
